package render

import (
	"fmt"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/graphics/content"
	"seehuhn.de/go/pdf/graphics/content/builder"
	"seehuhn.de/go/pdf/page"
	"seehuhn.de/go/pdf/pagetree"
)

// pdfDoc is a multi-page PDF under construction. Pages are appended in
// call order.
type pdfDoc struct {
	w    *pdf.Writer
	rm   *pdf.ResourceManager
	tree *pagetree.Writer
}

func createDocument(path string) (*pdfDoc, error) {
	w, err := pdf.Create(path, pdf.V1_7, nil)
	if err != nil {
		return nil, fmt.Errorf("create output document: %w", err)
	}
	rm := pdf.NewResourceManager(w)
	return &pdfDoc{
		w:    w,
		rm:   rm,
		tree: pagetree.NewWriter(w, rm),
	}, nil
}

// addPage appends one widthPt x heightPt page whose content is produced by
// draw.
func (d *pdfDoc) addPage(widthPt, heightPt float64, draw func(b *builder.Builder) error) error {
	res := &content.Resources{}
	b := builder.New(content.Page, res)
	if err := draw(b); err != nil {
		return err
	}
	if b.Err != nil {
		return fmt.Errorf("build page content: %w", b.Err)
	}

	pg := &page.Page{
		MediaBox:  &pdf.Rectangle{URx: widthPt, URy: heightPt},
		Resources: res,
		Contents:  []*page.Content{{Operators: b.Stream}},
	}
	if err := d.tree.AppendPageRef(d.w.Alloc(), pg); err != nil {
		return fmt.Errorf("append page: %w", err)
	}
	return nil
}

func (d *pdfDoc) close() error {
	ref, err := d.tree.Close()
	if err != nil {
		return fmt.Errorf("close page tree: %w", err)
	}
	d.w.GetMeta().Catalog.Pages = ref
	if err := d.rm.Close(); err != nil {
		return fmt.Errorf("close resources: %w", err)
	}
	return d.w.Close()
}

// abort discards the writer without finalizing the document; the caller
// removes the partial file.
func (d *pdfDoc) abort() {
	_ = d.w.Close()
}
