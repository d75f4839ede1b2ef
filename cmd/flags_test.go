package cmd

import "testing"

func TestValidateDPI(t *testing.T) {
	for _, dpi := range []int{300, 600} {
		if err := validateDPI(dpi); err != nil {
			t.Errorf("validateDPI(%d) = %v, want nil", dpi, err)
		}
	}
	for _, dpi := range []int{0, 72, 150, 299, 1200} {
		if err := validateDPI(dpi); err == nil {
			t.Errorf("validateDPI(%d) accepted an unsupported resolution", dpi)
		}
	}
}

func TestParseFitMode(t *testing.T) {
	if mode, err := parseFitMode("fit"); err != nil || mode != "fit" {
		t.Errorf("parseFitMode(fit) = %q, %v", mode, err)
	}
	if mode, err := parseFitMode("fill"); err != nil || mode != "fill" {
		t.Errorf("parseFitMode(fill) = %q, %v", mode, err)
	}
	if _, err := parseFitMode("stretch"); err == nil {
		t.Error("parseFitMode(stretch) accepted an unknown mode")
	}
}
