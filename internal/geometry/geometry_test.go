package geometry

import (
	"math"
	"testing"
)

func TestToOutputCenteredPhoto(t *testing.T) {
	// End-to-end numbers: A4 layout canvas 3048x4321 rendered onto a
	// 2480.3x3507.9 point page.
	layout := Size{W: 3048, H: 4321}
	output := Size{W: 2480.3, H: 3507.9}

	p := ToOutput(Point{X: 0, Y: 0}, layout, output)

	if math.Abs(p.X-1240.1) > 0.1 {
		t.Errorf("expected X ~1240.1, got %f", p.X)
	}
	if math.Abs(p.Y-1753.9) > 0.1 {
		t.Errorf("expected Y ~1753.9, got %f", p.Y)
	}

	fp := p.Footprint(Size{W: 1000, H: 1000}, 1.0)
	if math.Abs(fp.W-813.8) > 0.1 {
		t.Errorf("expected footprint width ~813.8, got %f", fp.W)
	}
	if math.Abs(fp.H-811.8) > 0.2 {
		t.Errorf("expected footprint height ~811.8, got %f", fp.H)
	}
}

func TestToOutputAxisFlip(t *testing.T) {
	layout := Size{W: 1000, H: 1000}
	output := Size{W: 1000, H: 1000}

	// Positive Y in layout space moves the photo up, which is a smaller Y
	// in output space.
	up := ToOutput(Point{X: 0, Y: 100}, layout, output)
	down := ToOutput(Point{X: 0, Y: -100}, layout, output)

	if up.Y != 400 {
		t.Errorf("expected Y 400 for center offset +100, got %f", up.Y)
	}
	if down.Y != 600 {
		t.Errorf("expected Y 600 for center offset -100, got %f", down.Y)
	}
}

func TestPlacementScaleReference(t *testing.T) {
	canvas := Size{W: 1872, H: 2634}
	image := Size{W: 1299, H: 1951}

	fit := PlacementScale(canvas, image, FitModeFit)
	if math.Abs(fit-1.2501514) > 1e-6 {
		t.Errorf("fit scale for reference pair: expected 1.2501514, got %g", fit)
	}

	fill := PlacementScale(canvas, image, FitModeFill)
	if math.Abs(fill-1.29376137) > 1e-6 {
		t.Errorf("fill scale for reference pair: expected 1.29376137, got %g", fill)
	}
}

func TestPlacementScaleCalibrationInvariant(t *testing.T) {
	// The scale is extrapolated from the reference capture by area ratio,
	// so scale * sqrt(imageArea/canvasArea) must equal the same
	// calibration constant for every canvas/image pair.
	refRatio := math.Sqrt(float64(1872*2634) / float64(1299*1951))
	wantFit := 1.2501514 / refRatio
	wantFill := 1.29376137 / refRatio

	cases := []struct {
		canvas Size
		image  Size
	}{
		{Size{3048, 4321}, Size{2480, 3508}},
		{Size{1872, 2634}, Size{800, 600}},
		{Size{1332, 1912}, Size{4032, 3024}},
		{Size{1872, 2634}, Size{1299, 1951}},
	}
	for _, tc := range cases {
		linearRatio := math.Sqrt(tc.image.Area() / tc.canvas.Area())

		gotFit := PlacementScale(tc.canvas, tc.image, FitModeFit) * linearRatio
		if math.Abs(gotFit-wantFit) > 1e-9 {
			t.Errorf("canvas %v image %v: fit calibration %g, want %g", tc.canvas, tc.image, gotFit, wantFit)
		}
		gotFill := PlacementScale(tc.canvas, tc.image, FitModeFill) * linearRatio
		if math.Abs(gotFill-wantFill) > 1e-9 {
			t.Errorf("canvas %v image %v: fill calibration %g, want %g", tc.canvas, tc.image, gotFill, wantFill)
		}
	}
}

func TestPlacementScaleModeOrdering(t *testing.T) {
	canvas := Size{W: 3048, H: 4321}
	image := Size{W: 2000, H: 1500}

	if fit, fill := PlacementScale(canvas, image, FitModeFit), PlacementScale(canvas, image, FitModeFill); fit >= fill {
		t.Errorf("fit scale %g should be below fill scale %g", fit, fill)
	}
}
