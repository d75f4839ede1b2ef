package upscale

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/joaorura/etdxpdf/internal/cache"
	"github.com/joaorura/etdxpdf/internal/config"
	"github.com/joaorura/etdxpdf/internal/imaging"
)

type fakeBackend struct {
	available bool
	err       error
	nilResult bool
	calls     int
}

func (f *fakeBackend) Name() string    { return "fake" }
func (f *fakeBackend) Available() bool { return f.available }

func (f *fakeBackend) Upscale(_ context.Context, img image.Image, factor int) (image.Image, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.nilResult {
		return nil, nil
	}
	return imaging.ScaleBy(img, factor), nil
}

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 11), uint8(y * 13), uint8((x + y) * 7), 255})
		}
	}
	return img
}

func newTestPipeline(t *testing.T, backend Backend) *Pipeline {
	t.Helper()
	store, err := cache.New(t.TempDir(), config.ModeInteractive, true)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return New(store, backend, time.Minute)
}

func TestSnapFactor(t *testing.T) {
	cases := []struct {
		need float64
		want int
	}{
		{1.6, 2},
		{2.0, 2},
		{2.1, 4},
		{3.0, 4},
		{4.0, 4},
		{5.0, 8},
		{8.0, 8},
		{9.0, 8},
		{20.0, 8},
	}
	for _, c := range cases {
		if got := snapFactor(c.need); got != c.want {
			t.Errorf("snapFactor(%v) = %d, want %d", c.need, got, c.want)
		}
	}
}

func TestNeedFactorUsesLargerAxis(t *testing.T) {
	got := needFactor(image.Rect(0, 0, 100, 200), 300, 250)
	if got != 3.0 {
		t.Errorf("needFactor = %v, want 3.0", got)
	}
}

func TestResolveSkipsWhenNotRequested(t *testing.T) {
	backend := &fakeBackend{available: true}
	p := newTestPipeline(t, backend)

	out := p.Resolve(context.Background(), cache.SyntheticIdentity("page_1"), gradient(10, 10), 40, 40, false)
	if out.Bounds().Dx() != 40 || out.Bounds().Dy() != 40 {
		t.Errorf("got %v, want 40x40", out.Bounds())
	}
	if backend.calls != 0 {
		t.Errorf("backend called %d times without a request", backend.calls)
	}
}

func TestResolveSkipsBelowThreshold(t *testing.T) {
	backend := &fakeBackend{available: true}
	p := newTestPipeline(t, backend)

	// 10x10 to 15x15 is exactly the 1.5 threshold.
	out := p.Resolve(context.Background(), cache.SyntheticIdentity("page_1"), gradient(10, 10), 15, 15, true)
	if out.Bounds().Dx() != 15 {
		t.Errorf("got %v, want 15x15", out.Bounds())
	}
	if backend.calls != 0 {
		t.Errorf("backend called %d times below threshold", backend.calls)
	}
}

func TestResolveRunsModelAndCaches(t *testing.T) {
	backend := &fakeBackend{available: true}
	p := newTestPipeline(t, backend)
	id := cache.SyntheticIdentity("page_1")

	out := p.Resolve(context.Background(), id, gradient(10, 10), 40, 40, true)
	if out.Bounds().Dx() != 40 || out.Bounds().Dy() != 40 {
		t.Errorf("got %v, want 40x40", out.Bounds())
	}
	if backend.calls != 1 {
		t.Fatalf("backend called %d times, want 1", backend.calls)
	}

	// Second resolve must come from the final tier.
	p.Resolve(context.Background(), id, gradient(10, 10), 40, 40, true)
	if backend.calls != 1 {
		t.Errorf("backend called %d times, want cached hit", backend.calls)
	}

	// A new target size reuses the model tier without another model run.
	p.Resolve(context.Background(), id, gradient(10, 10), 32, 32, true)
	if backend.calls != 1 {
		t.Errorf("backend called %d times, want model tier reuse", backend.calls)
	}
}

func TestResolveFallsBackOnBackendError(t *testing.T) {
	backend := &fakeBackend{available: true, err: errors.New("gpu on fire")}
	p := newTestPipeline(t, backend)
	id := cache.SyntheticIdentity("page_1")
	src := gradient(10, 10)

	out := p.Resolve(context.Background(), id, src, 40, 40, true)
	if out == nil {
		t.Fatal("fallback returned nil")
	}
	if out.Bounds().Dx() != 40 || out.Bounds().Dy() != 40 {
		t.Errorf("got %v, want 40x40", out.Bounds())
	}

	// Fallback output lands in the final tier, not the model tier, so
	// a later run with a working backend retries the model.
	if p.store.Get(cache.TierModel, cache.ModelFingerprint(id, 4)) != nil {
		t.Error("fallback polluted the model tier")
	}
	if p.store.Get(cache.TierFinal, cache.FinalFingerprint(id, 4, 40, 40)) == nil {
		t.Error("fallback missing from final tier")
	}
}

func TestResolveFallsBackOnShapelessResult(t *testing.T) {
	// A backend may report success yet hand back nothing usable; that
	// degrades to resampling like any other backend failure.
	backend := &fakeBackend{available: true, nilResult: true}
	p := newTestPipeline(t, backend)
	id := cache.SyntheticIdentity("page_1")

	out := p.Resolve(context.Background(), id, gradient(10, 10), 40, 40, true)
	if out == nil {
		t.Fatal("fallback returned nil")
	}
	if out.Bounds().Dx() != 40 || out.Bounds().Dy() != 40 {
		t.Errorf("got %v, want 40x40", out.Bounds())
	}
	if backend.calls != 1 {
		t.Errorf("backend called %d times, want 1", backend.calls)
	}
	if p.store.Get(cache.TierModel, cache.ModelFingerprint(id, 4)) != nil {
		t.Error("shapeless result polluted the model tier")
	}
}

func TestResolveUnavailableBackend(t *testing.T) {
	backend := &fakeBackend{available: false}
	p := newTestPipeline(t, backend)

	out := p.Resolve(context.Background(), cache.SyntheticIdentity("page_1"), gradient(10, 10), 40, 40, true)
	if out.Bounds().Dx() != 40 {
		t.Errorf("got %v, want 40x40", out.Bounds())
	}
	if backend.calls != 0 {
		t.Errorf("unavailable backend called %d times", backend.calls)
	}
}
