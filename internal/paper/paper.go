// Package paper holds the closed catalog of supported paper sizes and the
// lookup rules for matching arbitrary physical dimensions against it.
package paper

import (
	_ "embed"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed sizes.yaml
var sizesYAML []byte

// Spec describes one supported paper size: the symbolic id used on the CLI,
// the paperSizeId used inside the layout container, the physical size in
// millimeters and the layout canvas size in layout units.
type Spec struct {
	ID          string `yaml:"id"`
	PaperSizeID string `yaml:"paper_size_id"`
	Label       string `yaml:"label"`
	MM          [2]float64
	Canvas      [2]int
}

type specYAML struct {
	ID          string     `yaml:"id"`
	PaperSizeID string     `yaml:"paper_size_id"`
	Label       string     `yaml:"label"`
	MM          [2]float64 `yaml:"mm"`
	Canvas      [2]int     `yaml:"canvas"`
}

type catalogYAML struct {
	MMPerInch float64    `yaml:"mm_per_inch"`
	Sizes     []specYAML `yaml:"sizes"`
}

const mmPerInch = 25.4

// catalog preserves declaration order; lookup tie-breaks depend on it.
var catalog []Spec

func init() {
	var raw catalogYAML
	if err := yaml.Unmarshal(sizesYAML, &raw); err != nil {
		// Embedded file, so this can only happen on a broken build.
		panic("failed to unmarshal embedded sizes.yaml: " + err.Error())
	}

	catalog = make([]Spec, 0, len(raw.Sizes))
	for _, s := range raw.Sizes {
		catalog = append(catalog, Spec{
			ID:          s.ID,
			PaperSizeID: s.PaperSizeID,
			Label:       s.Label,
			MM:          s.MM,
			Canvas:      s.Canvas,
		})
	}
}

// Catalog returns the supported sizes in declaration order.
func Catalog() []Spec {
	out := make([]Spec, len(catalog))
	copy(out, catalog)
	return out
}

// ByID resolves a symbolic size id (case-insensitive).
func ByID(id string) (Spec, error) {
	for _, s := range catalog {
		if strings.EqualFold(s.ID, id) {
			return s, nil
		}
	}
	return Spec{}, fmt.Errorf("unsupported paper size %q, accepted sizes: %s", id, strings.Join(ids(), ", "))
}

// ByPaperSizeID resolves a container paperSizeId (case-insensitive).
func ByPaperSizeID(paperSizeID string) (Spec, error) {
	for _, s := range catalog {
		if strings.EqualFold(s.PaperSizeID, paperSizeID) {
			return s, nil
		}
	}
	return Spec{}, fmt.Errorf("unsupported paperSizeId %q, accepted ids: %s", paperSizeID, strings.Join(paperSizeIDs(), ", "))
}

// Nearest finds the best catalog entry for an arbitrary physical size.
//
// The rule is "smallest that fits, else closest": first collect every entry
// whose mm dimensions cover the input in either orientation and return the
// one with least area; if nothing is large enough, return the entry
// minimizing |dw|+|dh| over both orientations. Ties resolve to the entry
// declared first.
func Nearest(widthMM, heightMM float64) Spec {
	var best Spec
	bestArea := math.Inf(1)
	found := false
	for _, s := range catalog {
		w, h := s.MM[0], s.MM[1]
		if (w >= widthMM && h >= heightMM) || (h >= widthMM && w >= heightMM) {
			if area := w * h; area < bestArea {
				bestArea = area
				best = s
				found = true
			}
		}
	}
	if found {
		return best
	}

	minDiff := math.Inf(1)
	for _, s := range catalog {
		w, h := s.MM[0], s.MM[1]
		d1 := math.Abs(widthMM-w) + math.Abs(heightMM-h)
		d2 := math.Abs(widthMM-h) + math.Abs(heightMM-w)
		if d := math.Min(d1, d2); d < minDiff {
			minDiff = d
			best = s
		}
	}
	return best
}

// PointsAt converts the physical size to output points at the given DPI.
func (s Spec) PointsAt(dpi int) (width, height float64) {
	return s.MM[0] / mmPerInch * float64(dpi), s.MM[1] / mmPerInch * float64(dpi)
}

func ids() []string {
	out := make([]string, len(catalog))
	for i, s := range catalog {
		out[i] = s.ID
	}
	return out
}

func paperSizeIDs() []string {
	out := make([]string, len(catalog))
	for i, s := range catalog {
		out[i] = s.PaperSizeID
	}
	return out
}
