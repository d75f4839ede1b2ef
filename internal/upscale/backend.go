// Package upscale resolves page photos to their target raster size, using a
// super-resolution backend when one is installed and plain resampling when
// it is not. Resolution never fails a render: every error path degrades to
// resampling.
package upscale

import (
	"context"
	"image"
)

// Backend runs a super-resolution model at an integer scale factor.
type Backend interface {
	// Upscale returns img enlarged by factor. The context bounds the
	// model's runtime.
	Upscale(ctx context.Context, img image.Image, factor int) (image.Image, error)

	// Available reports whether the backend can run on this machine.
	Available() bool

	// Name identifies the backend in log output.
	Name() string
}
