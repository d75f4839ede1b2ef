// Package etdxgen converts a paginated PDF into an editable photobook
// container. Each PDF page is rasterized at the requested DPI and placed as
// a single full-page photo using the calibrated editor scale.
package etdxgen

import (
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/converter"
	"seehuhn.de/go/pdf/pagetree"

	"github.com/joaorura/etdxpdf/internal/cache"
	"github.com/joaorura/etdxpdf/internal/etdx"
	"github.com/joaorura/etdxpdf/internal/geometry"
	"github.com/joaorura/etdxpdf/internal/imaging"
	"github.com/joaorura/etdxpdf/internal/paper"
)

// ptToMM converts PDF points to millimeters.
const ptToMM = 0.3528

// generator-side upscaling is plain resampling only, capped lower than the
// render pipeline because whole-page rasters get large quickly.
const (
	genUpscaleThreshold = 1.5
	genMaxFactor        = 4
)

// Options control one container generation.
type Options struct {
	DPI       int
	PaperSize string // catalog id, or "auto" to detect from page 1
	FitMode   geometry.FitMode
	Upscale   bool
	Progress  func(completed, total int)
}

func (o *Options) fillDefaults() {
	if o.DPI == 0 {
		o.DPI = 300
	}
	if o.PaperSize == "" {
		o.PaperSize = "auto"
	}
	if o.FitMode == "" {
		o.FitMode = geometry.FitModeFit
	}
}

// Generator rasterizes a PDF into photobook pages.
type Generator struct {
	pdfPath string
	docKey  string
	store   *cache.Store
	workers int
}

// New prepares a generator for the PDF at pdfPath. The store caches
// upscaled page rasters between runs.
func New(pdfPath string, store *cache.Store) (*Generator, error) {
	r, err := pdf.Open(pdfPath, nil)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	r.Close()

	info, err := os.Stat(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("stat pdf: %w", err)
	}
	return &Generator{
		pdfPath: pdfPath,
		docKey:  fmt.Sprintf("%s_%d_%d", pdfPath, info.Size(), info.ModTime().UnixNano()),
		store:   store,
		workers: runtime.NumCPU(),
	}, nil
}

// pageIdentity names one rasterized page for cache addressing. The document
// path, size and mtime are part of the name: entries persist across runs,
// so a bare page number would let one PDF's rasters leak into another's
// container.
func (g *Generator) pageIdentity(pageNum int) cache.Identity {
	return cache.SyntheticIdentity(fmt.Sprintf("%s_page_%d", g.docKey, pageNum))
}

// NumPages returns the PDF's page count.
func (g *Generator) NumPages() (int, error) {
	r, err := pdf.Open(g.pdfPath, nil)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer r.Close()
	return pagetree.NumPages(r)
}

// DetectPaper returns the catalog size closest to the PDF's first page.
func (g *Generator) DetectPaper() (paper.Spec, error) {
	r, err := pdf.Open(g.pdfPath, nil)
	if err != nil {
		return paper.Spec{}, fmt.Errorf("open pdf: %w", err)
	}
	defer r.Close()

	widthPt, heightPt, err := pageSizePt(r, 1)
	if err != nil {
		return paper.Spec{}, err
	}
	return paper.Nearest(widthPt*ptToMM, heightPt*ptToMM), nil
}

// resolvePaper picks the catalog entry for opts.PaperSize.
func (g *Generator) resolvePaper(opts Options) (paper.Spec, error) {
	if opts.PaperSize == "auto" {
		return g.DetectPaper()
	}
	return paper.ByID(opts.PaperSize)
}

type pageResult struct {
	img      image.Image
	widthPt  float64
	heightPt float64
	err      error
}

// Generate writes the container to outputPath.
func (g *Generator) Generate(outputPath string, opts Options) error {
	opts.fillDefaults()

	spec, err := g.resolvePaper(opts)
	if err != nil {
		return err
	}
	total, err := g.NumPages()
	if err != nil {
		return err
	}
	if total == 0 {
		return fmt.Errorf("pdf has no pages")
	}
	log.Printf("generating container: %d pages as %s (%s)", total, spec.ID, spec.PaperSizeID)

	results := g.renderPages(total, opts)

	builder, err := etdx.NewBuilder()
	if err != nil {
		return err
	}
	defer builder.Close()

	stem := strings.TrimSuffix(filepath.Base(g.pdfPath), filepath.Ext(g.pdfPath))
	canvas := geometry.Size{W: float64(spec.Canvas[0]), H: float64(spec.Canvas[1])}

	for i, res := range results {
		if res.err != nil {
			log.Printf("WARNING: skipping page %d: %v", i+1, res.err)
			continue
		}

		pageWPx := int(res.widthPt * float64(opts.DPI) / 72)
		pageHPx := int(res.heightPt * float64(opts.DPI) / 72)
		scale := geometry.PlacementScale(canvas,
			geometry.Size{W: float64(pageWPx), H: float64(pageHPx)}, opts.FitMode)

		data, err := imaging.Encode(res.img, imaging.FormatPNG, 0)
		if err != nil {
			return fmt.Errorf("encode page %d: %w", i+1, err)
		}
		photo := etdx.Photo{
			OriginalSize: [2]int{pageWPx, pageHPx},
			Center:       [2]float64{0, 0},
			Scale:        scale,
			Crop:         etdx.Crop{Type: 1, Rect: [4]int{0, 0, pageWPx, pageHPx}},
		}
		name := fmt.Sprintf("%s_%d.png", stem, i+1)
		if err := builder.AddPage(spec.PaperSizeID, spec.Canvas, name, data, photo); err != nil {
			return fmt.Errorf("add page %d: %w", i+1, err)
		}
		if opts.Progress != nil {
			opts.Progress(i+1, total)
		}
	}

	return builder.Finish(outputPath)
}

// renderPages rasterizes all pages, fanning out across a bounded pool.
// Each worker opens its own reader since readers are not safe for
// concurrent page rendering. Results are returned in page order.
func (g *Generator) renderPages(total int, opts Options) []pageResult {
	results := make([]pageResult, total)

	workers := g.workers
	if workers > total {
		workers = total
	}
	if workers <= 1 {
		g.renderRange(0, total, results, opts)
		return results
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func(pageIdx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			g.renderRange(pageIdx, pageIdx+1, results, opts)
		}(i)
	}
	wg.Wait()
	return results
}

func (g *Generator) renderRange(lo, hi int, results []pageResult, opts Options) {
	r, err := pdf.Open(g.pdfPath, nil)
	if err != nil {
		for i := lo; i < hi; i++ {
			results[i] = pageResult{err: err}
		}
		return
	}
	defer r.Close()
	conv := converter.NewConverter(r)

	for i := lo; i < hi; i++ {
		widthPt, heightPt, err := pageSizePt(r, i+1)
		if err != nil {
			results[i] = pageResult{err: err}
			continue
		}
		img, err := conv.RenderPageToImage(i+1, float64(opts.DPI))
		if err != nil {
			results[i] = pageResult{err: err}
			continue
		}
		if opts.Upscale {
			img = g.upscalePage(img, i+1, widthPt, heightPt, opts.DPI)
		}
		results[i] = pageResult{img: img, widthPt: widthPt, heightPt: heightPt}
	}
}

// upscalePage resamples a page raster toward double the render DPI, going
// through the final cache tier under a synthetic page identity.
func (g *Generator) upscalePage(img image.Image, pageNum int, widthPt, heightPt float64, dpi int) image.Image {
	targetDPI := dpi * 2
	targetW := int(widthPt * float64(targetDPI) / 72)
	targetH := int(heightPt * float64(targetDPI) / 72)

	b := img.Bounds()
	if b.Dx() >= targetW && b.Dy() >= targetH {
		return img
	}
	factor := float64(targetW) / float64(b.Dx())
	if f := float64(targetH) / float64(b.Dy()); f > factor {
		factor = f
	}
	if factor <= genUpscaleThreshold {
		return img
	}
	snapped := 2
	if factor > 2 {
		snapped = genMaxFactor
	}

	fp := cache.FinalFingerprint(g.pageIdentity(pageNum), snapped, targetW, targetH)
	if hit := g.store.Get(cache.TierFinal, fp); hit != nil {
		return hit
	}
	out := imaging.Resize(img, targetW, targetH)
	g.store.Set(cache.TierFinal, fp, out)
	return out
}

// pageSizePt reads a page's MediaBox extent in points. pageNum is 1-based.
func pageSizePt(r pdf.Getter, pageNum int) (width, height float64, err error) {
	_, pageDict, err := pagetree.GetPage(r, pageNum-1)
	if err != nil {
		return 0, 0, fmt.Errorf("get page %d: %w", pageNum, err)
	}
	mediaBox, err := pdf.GetArray(r, pageDict["MediaBox"])
	if err != nil {
		return 0, 0, err
	}
	if len(mediaBox) < 4 {
		return 0, 0, fmt.Errorf("page %d has no valid MediaBox", pageNum)
	}
	llx, _ := pdf.GetNumber(r, mediaBox[0])
	lly, _ := pdf.GetNumber(r, mediaBox[1])
	urx, _ := pdf.GetNumber(r, mediaBox[2])
	ury, _ := pdf.GetNumber(r, mediaBox[3])
	return float64(urx - llx), float64(ury - lly), nil
}
