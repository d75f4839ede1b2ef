// Package render turns an opened photobook container into a paginated PDF.
// Pages are emitted in container order; photos that only need resampling run
// across a worker pool while photos needing the super-resolution model run
// sequentially in the coordinating goroutine.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"math"
	"os"
	"runtime"
	"sync"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/pdf/graphics"
	"seehuhn.de/go/pdf/graphics/color"
	"seehuhn.de/go/pdf/graphics/content/builder"
	pdfimage "seehuhn.de/go/pdf/graphics/image"

	"github.com/joaorura/etdxpdf/internal/cache"
	"github.com/joaorura/etdxpdf/internal/etdx"
	"github.com/joaorura/etdxpdf/internal/geometry"
	"github.com/joaorura/etdxpdf/internal/imaging"
	"github.com/joaorura/etdxpdf/internal/paper"
	"github.com/joaorura/etdxpdf/internal/upscale"
)

// FallbackDPI is the resolution the whole document retries at when a source
// image exceeds the decode ceiling.
const FallbackDPI = 300

// upscaleTrigger matches the pipeline's threshold: below it a photo never
// enters the sequential model set.
const upscaleTrigger = 1.5

var ErrUnsupportedPaperSize = errors.New("unsupported paper size")

// Options control one document render.
type Options struct {
	DPI      int
	Format   imaging.Format
	Quality  int
	Upscale  bool
	Progress func(completed, total int)
}

func (o *Options) fillDefaults() {
	if o.DPI == 0 {
		o.DPI = FallbackDPI
	}
	if o.Format == "" {
		o.Format = imaging.FormatJPEG
	}
	if o.Quality == 0 {
		o.Quality = 90
	}
}

// Renderer drives page rendering over an upscale pipeline.
type Renderer struct {
	pipeline  *upscale.Pipeline
	maxPixels int
	workers   int
}

// New builds a renderer. maxPixels <= 0 selects the default decode ceiling.
func New(pipeline *upscale.Pipeline, maxPixels int) *Renderer {
	return &Renderer{
		pipeline:  pipeline,
		maxPixels: maxPixels,
		workers:   runtime.NumCPU(),
	}
}

// RenderDocument renders every page of the container into a PDF at
// outputPath. When a source image exceeds the decode ceiling the whole
// document is retried once at FallbackDPI; a failed render leaves no
// output file behind.
func (r *Renderer) RenderDocument(ctx context.Context, project *etdx.Project, outputPath string, opts Options) error {
	opts.fillDefaults()

	err := r.renderOnce(ctx, project, outputPath, opts)
	var oversized *imaging.OversizedError
	if errors.As(err, &oversized) && opts.DPI != FallbackDPI {
		log.Printf("WARNING: %v, retrying document at %d DPI", oversized, FallbackDPI)
		opts.DPI = FallbackDPI
		return r.renderOnce(ctx, project, outputPath, opts)
	}
	return err
}

func (r *Renderer) renderOnce(ctx context.Context, project *etdx.Project, outputPath string, opts Options) error {
	doc, err := createDocument(outputPath)
	if err != nil {
		return err
	}

	total := len(project.PageIDs)
	for i, pageID := range project.PageIDs {
		info, err := project.Page(pageID)
		if err != nil {
			if errors.Is(err, etdx.ErrPageNotFound) {
				log.Printf("WARNING: skipping missing page %s", pageID)
				continue
			}
			doc.abort()
			os.Remove(outputPath)
			return err
		}
		if err := r.renderPage(ctx, doc, project, pageID, info, opts); err != nil {
			doc.abort()
			os.Remove(outputPath)
			return fmt.Errorf("page %s: %w", pageID, err)
		}
		if opts.Progress != nil {
			opts.Progress(i+1, total)
		}
	}

	if err := doc.close(); err != nil {
		os.Remove(outputPath)
		return err
	}
	return nil
}

// job is one photo's transform, decode and resample work, addressable by
// its position in the page's photo list.
type job struct {
	index     int
	srcPath   string
	photo     etdx.Photo
	place     geometry.Placement
	footprint geometry.Size
	targetW   int
	targetH   int
}

func (r *Renderer) renderPage(ctx context.Context, doc *pdfDoc, project *etdx.Project, pageID string, info *etdx.PageInfo, opts Options) error {
	eps := info.EditedPaperSize
	spec, err := resolvePaper(eps.PaperSizeID)
	if err != nil {
		return err
	}
	pageW, pageH := spec.PointsAt(opts.DPI)
	layoutCanvas := geometry.Size{W: float64(eps.Size[0]), H: float64(eps.Size[1])}
	outputCanvas := geometry.Size{W: pageW, H: pageH}

	var plain, model []job
	for i, photo := range eps.Photos {
		srcPath, err := project.PhotoPath(pageID, photo)
		if err != nil {
			log.Printf("WARNING: skipping photo on page %s: %v", pageID, err)
			continue
		}
		place := geometry.ToOutput(
			geometry.Point{X: photo.Center[0], Y: photo.Center[1]},
			layoutCanvas, outputCanvas,
		)
		fp := place.Footprint(geometry.Size{
			W: float64(photo.OriginalSize[0]),
			H: float64(photo.OriginalSize[1]),
		}, photo.Scale)

		j := job{
			index:     i,
			srcPath:   srcPath,
			photo:     photo,
			place:     place,
			footprint: fp,
			targetW:   int(fp.W / 72 * float64(opts.DPI)),
			targetH:   int(fp.H / 72 * float64(opts.DPI)),
		}
		if j.targetW <= 0 || j.targetH <= 0 {
			log.Printf("WARNING: skipping zero-extent photo on page %s", pageID)
			continue
		}
		if needsModelPass(photo.OriginalSize[0], photo.OriginalSize[1], j.targetW, j.targetH, opts.Upscale) {
			model = append(model, j)
		} else {
			plain = append(plain, j)
		}
	}

	// Results indexed by photo-list position, so compositing order is
	// independent of completion order.
	results := make([]image.Image, len(eps.Photos))

	if err := r.runPlainSet(plain, results); err != nil {
		return err
	}
	for _, j := range model {
		img, err := r.loadSource(j)
		if err != nil {
			return err
		}
		if img == nil {
			continue
		}
		results[j.index] = r.pipeline.Resolve(ctx, cache.FileIdentity(j.srcPath), img, j.targetW, j.targetH, true)
	}

	jobs := make([]job, 0, len(plain)+len(model))
	jobs = append(jobs, plain...)
	jobs = append(jobs, model...)

	return doc.addPage(pageW, pageH, func(b *builder.Builder) error {
		b.SetFillColor(color.DeviceRGB{1, 1, 1})
		b.Rectangle(0, 0, pageW, pageH)
		b.Fill()

		for _, j := range orderedByIndex(jobs) {
			img := results[j.index]
			if img == nil {
				continue
			}
			xobj, err := r.embed(img, opts)
			if err != nil {
				return err
			}
			b.PushGraphicsState()
			b.Transform(matrix.Translate(j.place.X-j.footprint.W/2, j.place.Y-j.footprint.H/2))
			b.Transform(matrix.Scale(j.footprint.W, j.footprint.H))
			b.DrawXObject(xobj)
			b.PopGraphicsState()
		}
		return nil
	})
}

// runPlainSet decodes and resamples the pool-safe jobs. Pool failures fall
// back to sequential processing of the failed jobs instead of aborting the
// page; only decode-ceiling errors propagate.
func (r *Renderer) runPlainSet(jobs []job, results []image.Image) error {
	run := func(j job) error {
		img, err := r.loadSource(j)
		if err != nil || img == nil {
			return err
		}
		results[j.index] = imaging.Resize(img, j.targetW, j.targetH)
		return nil
	}

	if r.workers <= 1 || len(jobs) <= 1 {
		for _, j := range jobs {
			if err := run(j); err != nil {
				return err
			}
		}
		return nil
	}

	errs := make([]error, len(jobs))
	retry := make([]bool, len(jobs))
	sem := make(chan struct{}, r.workers)
	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		go func(slot int, j job) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					retry[slot] = true
				}
			}()
			sem <- struct{}{}
			defer func() { <-sem }()
			errs[slot] = run(j)
		}(i, j)
	}
	wg.Wait()

	for i, j := range jobs {
		if retry[i] {
			log.Printf("WARNING: parallel processing failed, retrying photo %d sequentially", j.index)
			errs[i] = run(j)
		}
		if errs[i] != nil {
			return errs[i]
		}
	}
	return nil
}

// loadSource decodes a job's source raster. A missing or undecodable file
// skips the photo (nil, nil); an oversized source propagates so the
// document can retry at a lower DPI.
func (r *Renderer) loadSource(j job) (image.Image, error) {
	img, err := imaging.DecodeFile(j.srcPath, r.maxPixels)
	if err != nil {
		var oversized *imaging.OversizedError
		if errors.As(err, &oversized) {
			return nil, err
		}
		log.Printf("WARNING: skipping photo %s: %v", j.photo.ImagePath, err)
		return nil, nil
	}
	return img, nil
}

func (r *Renderer) embed(img image.Image, opts Options) (graphics.Image, error) {
	if opts.Format == imaging.FormatJPEG {
		return pdfimage.JPEG(img, &jpeg.Options{Quality: opts.Quality})
	}
	return pdfimage.PNG(img, nil)
}

// needsModelPass reports whether a photo belongs to the sequential
// super-resolution set rather than the pool-safe resample set. A source
// already covering its target, or within the resample threshold, never
// pays for a model run.
func needsModelPass(origW, origH, targetW, targetH int, upscaleEnabled bool) bool {
	if !upscaleEnabled || origW <= 0 || origH <= 0 {
		return false
	}
	if origW >= targetW && origH >= targetH {
		return false
	}
	factor := math.Max(float64(targetW)/float64(origW), float64(targetH)/float64(origH))
	return factor > upscaleTrigger
}

func orderedByIndex(jobs []job) []job {
	out := make([]job, len(jobs))
	copy(out, jobs)
	for i := 1; i < len(out); i++ {
		for k := i; k > 0 && out[k-1].index > out[k].index; k-- {
			out[k], out[k-1] = out[k-1], out[k]
		}
	}
	return out
}

func resolvePaper(id string) (paper.Spec, error) {
	if spec, err := paper.ByPaperSizeID(id); err == nil {
		return spec, nil
	}
	spec, err := paper.ByID(id)
	if err != nil {
		return paper.Spec{}, fmt.Errorf("%w: %s", ErrUnsupportedPaperSize, id)
	}
	return spec, nil
}
