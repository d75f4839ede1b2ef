package upscale

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/joaorura/etdxpdf/internal/cache"
	"github.com/joaorura/etdxpdf/internal/imaging"
)

const (
	// Sources already at or near target size gain nothing from a model
	// pass, so anything within this factor is plain resampling.
	upscaleThreshold = 1.5

	// maxFactor caps the model scale; sources needing more are upscaled
	// at the cap and resampled the rest of the way.
	maxFactor = 8

	// DefaultTimeout bounds a single model invocation.
	DefaultTimeout = 300 * time.Second

	lockRetryDelay = 250 * time.Millisecond
)

// Pipeline resolves images to their target size, consulting the cache
// tiers before paying for a model run. Model runs are serialized across
// processes with a file lock so concurrent renders do not oversubscribe
// the GPU.
type Pipeline struct {
	store   *cache.Store
	backend Backend
	timeout time.Duration

	warnOnce sync.Once
}

// New builds a pipeline over a cache store and a backend. A zero timeout
// selects DefaultTimeout.
func New(store *cache.Store, backend Backend, timeout time.Duration) *Pipeline {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Pipeline{store: store, backend: backend, timeout: timeout}
}

// snapFactor maps a required enlargement to the smallest model factor
// that covers it, capped at maxFactor.
func snapFactor(need float64) int {
	for _, f := range []int{2, 4, maxFactor} {
		if float64(f) >= need {
			return f
		}
	}
	return maxFactor
}

// needFactor is the enlargement required to cover the target on both axes.
func needFactor(bounds image.Rectangle, targetW, targetH int) float64 {
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return 0
	}
	fw := float64(targetW) / float64(w)
	fh := float64(targetH) / float64(h)
	if fw > fh {
		return fw
	}
	return fh
}

// Resolve returns img at targetW x targetH. When requested is false, the
// source already covers the target, or the backend is missing or fails,
// the result is a plain resample. Resolve never returns an error: a
// render must finish even when the model cannot run.
func (p *Pipeline) Resolve(ctx context.Context, id cache.Identity, img image.Image, targetW, targetH int, requested bool) image.Image {
	if !requested {
		return imaging.Resize(img, targetW, targetH)
	}
	if !p.backend.Available() {
		p.warnOnce.Do(func() {
			log.Printf("WARNING: upscaler %s not found, falling back to resampling", p.backend.Name())
		})
		return imaging.Resize(img, targetW, targetH)
	}

	need := needFactor(img.Bounds(), targetW, targetH)
	if need <= upscaleThreshold {
		return imaging.Resize(img, targetW, targetH)
	}
	factor := snapFactor(need)

	finalFP := cache.FinalFingerprint(id, factor, targetW, targetH)
	if hit := p.store.Get(cache.TierFinal, finalFP); hit != nil {
		return hit
	}

	modelFP := cache.ModelFingerprint(id, factor)
	if model := p.store.Get(cache.TierModel, modelFP); model != nil {
		out := imaging.Resize(model, targetW, targetH)
		p.store.Set(cache.TierFinal, finalFP, out)
		return out
	}

	upscaled, err := p.runModel(ctx, modelFP, img, factor)
	if err != nil {
		log.Printf("WARNING: super-resolution failed for %s, falling back to resampling: %v", id.Name, err)
		out := imaging.Resize(img, targetW, targetH)
		// The model tier stays clean so a later run can retry the model.
		p.store.Set(cache.TierFinal, finalFP, out)
		return out
	}

	out := imaging.Resize(upscaled, targetW, targetH)
	p.store.Set(cache.TierFinal, finalFP, out)
	return out
}

// runModel invokes the backend under the cross-process lock, rechecking
// the model tier once the lock is held in case another process already
// produced the same entry while we waited.
func (p *Pipeline) runModel(ctx context.Context, modelFP cache.Fingerprint, img image.Image, factor int) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// The cache root may not exist when persistence is disabled; the
	// lock file still lives there.
	if err := os.MkdirAll(p.store.Root(), 0o755); err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(p.store.Root(), "model.lock"))
	if _, err := lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Printf("WARNING: failed to release model lock: %v", err)
		}
	}()

	if model := p.store.Get(cache.TierModel, modelFP); model != nil {
		return model, nil
	}

	upscaled, err := p.backend.Upscale(ctx, img, factor)
	if err != nil {
		return nil, err
	}
	// A backend that reports success must still hand back a usable raster.
	if upscaled == nil || upscaled.Bounds().Empty() {
		return nil, fmt.Errorf("backend %s returned an image with no extent", p.backend.Name())
	}
	p.store.Set(cache.TierModel, modelFP, upscaled)
	return upscaled, nil
}
