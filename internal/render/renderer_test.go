package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joaorura/etdxpdf/internal/cache"
	"github.com/joaorura/etdxpdf/internal/config"
	"github.com/joaorura/etdxpdf/internal/etdx"
	"github.com/joaorura/etdxpdf/internal/imaging"
	"github.com/joaorura/etdxpdf/internal/upscale"
)

func TestNeedsModelPass(t *testing.T) {
	cases := []struct {
		name                   string
		origW, origH           int
		targetW, targetH       int
		upscale, want          bool
	}{
		{"disabled", 100, 100, 1000, 1000, false, false},
		{"source covers target", 2000, 2000, 1000, 1000, true, false},
		{"within threshold", 1000, 1000, 1400, 1400, true, false},
		{"needs model", 1000, 1000, 4000, 4000, true, true},
		{"one axis short", 4000, 500, 4000, 4000, true, true},
		{"zero source", 0, 0, 1000, 1000, true, false},
	}
	for _, c := range cases {
		got := needsModelPass(c.origW, c.origH, c.targetW, c.targetH, c.upscale)
		if got != c.want {
			t.Errorf("%s: needsModelPass = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestOrderedByIndexRestoresPhotoOrder(t *testing.T) {
	jobs := []job{{index: 3}, {index: 0}, {index: 2}, {index: 1}}
	got := orderedByIndex(jobs)
	for i, j := range got {
		if j.index != i {
			t.Fatalf("position %d holds index %d", i, j.index)
		}
	}
	// Input must stay untouched; the photo lists are read-only.
	if jobs[0].index != 3 {
		t.Error("orderedByIndex mutated its input")
	}
}

func TestResolvePaper(t *testing.T) {
	spec, err := resolvePaper("2L")
	if err != nil {
		t.Fatalf("resolve 2L: %v", err)
	}
	if spec.ID != "5x7" {
		t.Errorf("2L resolved to %s", spec.ID)
	}

	spec, err = resolvePaper("A4")
	if err != nil {
		t.Fatalf("resolve A4: %v", err)
	}
	if spec.Canvas != [2]int{3048, 4321} {
		t.Errorf("A4 canvas = %v", spec.Canvas)
	}

	if _, err := resolvePaper("B5"); err == nil {
		t.Error("unknown size resolved")
	}
}

func TestTargetPixelSize(t *testing.T) {
	// A 1000x1000 photo at scale 1.0 on the A4 canvas rendered at 300 DPI
	// occupies about 814x812 page units, which maps to 3390x3382 pixels.
	spec, err := resolvePaper("A4")
	if err != nil {
		t.Fatal(err)
	}
	pageW, pageH := spec.PointsAt(300)
	sx := pageW / 3048
	sy := pageH / 4321
	fpW := 1000 * 1.0 * sx
	fpH := 1000 * 1.0 * sy

	targetW := int(fpW / 72 * 300)
	targetH := int(fpH / 72 * 300)
	if targetW != 3390 || targetH != 3382 {
		t.Errorf("target = %dx%d, want 3390x3382", targetW, targetH)
	}
}

func testPhotoPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 200, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	store, err := cache.New(t.TempDir(), config.ModeInteractive, true)
	if err != nil {
		t.Fatal(err)
	}
	pipeline := upscale.New(store, upscale.NewCLI(upscale.WithBinary("missing-upscaler")), time.Minute)
	return New(pipeline, 0)
}

func TestRenderDocument(t *testing.T) {
	b, err := etdx.NewBuilder()
	if err != nil {
		t.Fatal(err)
	}
	photo := etdx.Photo{
		OriginalSize: [2]int{120, 90},
		Center:       [2]float64{0, 0},
		Scale:        10.0,
		Crop:         etdx.Crop{Type: 1, Rect: [4]int{0, 0, 120, 90}},
	}
	if err := b.AddPage("2L", [2]int{1872, 2634}, "photo.png", testPhotoPNG(t, 120, 90), photo); err != nil {
		t.Fatal(err)
	}
	container := filepath.Join(t.TempDir(), "in.etdx")
	if err := b.Finish(container); err != nil {
		t.Fatal(err)
	}

	project, err := etdx.Open(container)
	if err != nil {
		t.Fatal(err)
	}
	defer project.Close()

	out := filepath.Join(t.TempDir(), "out.pdf")
	var lastDone, lastTotal int
	err = testRenderer(t).RenderDocument(context.Background(), project, out, Options{
		DPI:    300,
		Format: imaging.FormatPNG,
		Progress: func(done, total int) {
			lastDone, lastTotal = done, total
		},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Error("output is not a PDF")
	}
	if lastDone != 1 || lastTotal != 1 {
		t.Errorf("progress = %d/%d, want 1/1", lastDone, lastTotal)
	}
}

func TestRenderDocumentOversizedLeavesNoOutput(t *testing.T) {
	b, err := etdx.NewBuilder()
	if err != nil {
		t.Fatal(err)
	}
	photo := etdx.Photo{
		OriginalSize: [2]int{40, 40},
		Scale:        1.0,
		Crop:         etdx.Crop{Type: 1, Rect: [4]int{0, 0, 40, 40}},
	}
	if err := b.AddPage("2L", [2]int{1872, 2634}, "photo.png", testPhotoPNG(t, 40, 40), photo); err != nil {
		t.Fatal(err)
	}
	container := filepath.Join(t.TempDir(), "in.etdx")
	if err := b.Finish(container); err != nil {
		t.Fatal(err)
	}

	project, err := etdx.Open(container)
	if err != nil {
		t.Fatal(err)
	}
	defer project.Close()

	r := testRenderer(t)
	r.maxPixels = 100 // force every decode over the ceiling

	out := filepath.Join(t.TempDir(), "out.pdf")
	// Already at the fallback DPI, so the error must surface.
	err = r.RenderDocument(context.Background(), project, out, Options{DPI: FallbackDPI})
	var oversized *imaging.OversizedError
	if err == nil {
		t.Fatal("expected oversized error")
	}
	if !errors.As(err, &oversized) {
		t.Fatalf("got %v, want OversizedError", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("failed render left a partial output file")
	}
}
