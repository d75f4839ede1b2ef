// Package imaging wraps raster decode, resample and encode for the rest of
// the pipeline. All resampling uses a high-quality Catmull-Rom kernel.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// DefaultMaxPixels is the decode ceiling: sources above this pixel count are
// rejected with an OversizedError so the caller can retry at a lower DPI.
const DefaultMaxPixels = 512 * 1024 * 1024

// Format identifies the encoded output codec.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJPEG, FormatPNG:
		return Format(s), nil
	}
	return "", fmt.Errorf("unsupported image format %q (want jpeg or png)", s)
}

// OversizedError reports a source whose pixel count exceeds the decode
// ceiling.
type OversizedError struct {
	Path   string
	Width  int
	Height int
	Limit  int
}

func (e *OversizedError) Error() string {
	return fmt.Sprintf("image %s is %dx%d (%d pixels), above the %d pixel limit",
		e.Path, e.Width, e.Height, e.Width*e.Height, e.Limit)
}

// DecodeFile decodes a raster file, enforcing the pixel ceiling before
// loading pixel data.
func DecodeFile(path string, maxPixels int) (image.Image, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read image header of %s: %w", path, err)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return nil, &OversizedError{Path: path, Width: cfg.Width, Height: cfg.Height, Limit: maxPixels}
	}

	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// Resize resamples an image to the exact target size.
func Resize(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// ScaleBy resamples an image by an integer factor.
func ScaleBy(img image.Image, factor int) *image.RGBA {
	b := img.Bounds()
	return Resize(img, b.Dx()*factor, b.Dy()*factor)
}

// Encode serializes an image in the requested format. quality only applies
// to JPEG.
func Encode(img image.Image, format Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("failed to encode jpeg: %w", err)
		}
	case FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode png: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported image format %q", format)
	}
	return buf.Bytes(), nil
}
