package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sync"

	"github.com/sirupsen/logrus"
)

// textSource is a reader that yields text, page boxes and the info dictionary
type textSource interface {
	backend() string
	pageCount() int
	pageText(number int) ([]glyph, error)
	pageBox(number int) (pageBox, error)
	info() (Metadata, error)
}

// outlineSource is implemented by backends that can read bookmarks
type outlineSource interface {
	outline() ([]OutlineItem, error)
}

// drawingSource is implemented by backends that expose content-stream operations
type drawingSource interface {
	operations(number int) ([]Operation, error)
	resolve(op Operation) (Object, error)
	pixels(op Operation) (image.Image, error)
}

// rasterSource renders whole pages to pixels
type rasterSource interface {
	render(number int, dst draw.Image, vp Viewport) error
	close() error
}

// structureSource is the pdfcpu view of the document
type structureSource interface {
	outlineSource
	pageCount() int
	pageBox(number int) (pageBox, error)
	encrypted() bool
}

// pageBox is the page rectangle in user space units
type pageBox struct {
	width  float64
	height float64
	rotate int
}

// defaultPageBox is US Letter, used when a page declares no MediaBox
var defaultPageBox = pageBox{width: 612, height: 792}

// Document implements DocumentHandle over the configured backends
type Document struct {
	log       *logrus.Entry
	norm      string
	version   string
	numPages  int
	text      textSource
	structure structureSource
	drawing   drawingSource
	raster    rasterSource

	mu     sync.RWMutex
	closed bool
}

// NumPages returns the total number of pages
func (d *Document) NumPages() int {
	return d.numPages
}

// Metadata returns the PDF metadata
func (d *Document) Metadata(ctx context.Context) (Metadata, error) {
	if err := d.enter(ctx); err != nil {
		return Metadata{}, err
	}
	defer d.mu.RUnlock()

	md, err := d.text.info()
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read document info: %w", err)
	}
	md.PDFVersion = d.version
	if d.structure != nil && d.structure.encrypted() {
		md.Encrypted = true
	}
	return md, nil
}

// Page returns a specific page by number (1-based)
func (d *Document) Page(ctx context.Context, number int) (PageHandle, error) {
	if number < 1 || number > d.numPages {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrPageOutOfRange, number, d.numPages)
	}
	if err := d.enter(ctx); err != nil {
		return nil, err
	}
	defer d.mu.RUnlock()

	var (
		box pageBox
		err error
	)
	if d.structure != nil {
		box, err = d.structure.pageBox(number)
	} else {
		box, err = d.text.pageBox(number)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page %d: %w", number, err)
	}

	return &Page{doc: d, number: number, box: box}, nil
}

// Outline returns the document bookmarks
func (d *Document) Outline(ctx context.Context) ([]OutlineItem, error) {
	if err := d.enter(ctx); err != nil {
		return nil, err
	}
	defer d.mu.RUnlock()

	// the text backend keeps entries without a destination; pdfcpu drops them
	if src, ok := d.text.(outlineSource); ok {
		items, err := src.outline()
		if err == nil {
			return items, nil
		}
		if d.structure == nil {
			return nil, err
		}
		d.log.WithError(err).Warn("text backend could not read bookmarks, trying pdfcpu")
	}

	if d.structure == nil {
		return nil, fmt.Errorf("outline: %w", ErrUnsupported)
	}
	return d.structure.outline()
}

// Close releases resources associated with the document
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error
	if d.raster != nil {
		err = d.raster.close()
	}
	d.closed = true
	d.text = nil
	d.structure = nil
	d.drawing = nil
	d.raster = nil
	return err
}

// enter read-locks the document. On success the caller must RUnlock.
func (d *Document) enter(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return ErrClosed
	}
	return nil
}

// Page implements PageHandle
type Page struct {
	doc    *Document
	number int
	box    pageBox
}

// Number returns the page number (1-based)
func (p *Page) Number() int {
	return p.number
}

// TextContent returns the text runs of the page
func (p *Page) TextContent(ctx context.Context) ([]TextItem, error) {
	if err := p.doc.enter(ctx); err != nil {
		return nil, err
	}
	defer p.doc.mu.RUnlock()

	glyphs, err := p.doc.text.pageText(p.number)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text of page %d: %w", p.number, err)
	}
	return coalesce(glyphs, p.doc.norm), nil
}

// Viewport returns the page rectangle at the given scale.
// Pages rotated by 90 or 270 degrees swap width and height.
func (p *Page) Viewport(scale float64) Viewport {
	w, h := p.box.width, p.box.height
	rotation := ((p.box.rotate % 360) + 360) % 360
	if rotation == 90 || rotation == 270 {
		w, h = h, w
	}
	return Viewport{
		Width:    w * scale,
		Height:   h * scale,
		Scale:    scale,
		Rotation: rotation,
	}
}

// Operations returns the drawing operations of the page
func (p *Page) Operations(ctx context.Context) ([]Operation, error) {
	if err := p.doc.enter(ctx); err != nil {
		return nil, err
	}
	defer p.doc.mu.RUnlock()

	if p.doc.drawing == nil {
		return nil, fmt.Errorf("drawing operations with %s: %w", p.doc.text.backend(), ErrUnsupported)
	}
	ops, err := p.doc.drawing.operations(p.number)
	if err != nil {
		return nil, fmt.Errorf("failed to read operations of page %d: %w", p.number, err)
	}
	return ops, nil
}

// ResolveObject resolves the XObject painted by op
func (p *Page) ResolveObject(ctx context.Context, op Operation) (Object, error) {
	if !op.IsXObjectPaint() {
		return Object{}, fmt.Errorf("operator %q does not reference an object", op.Operator)
	}
	if err := p.doc.enter(ctx); err != nil {
		return Object{}, err
	}
	defer p.doc.mu.RUnlock()

	if p.doc.drawing == nil {
		return Object{}, fmt.Errorf("resolve object: %w", ErrUnsupported)
	}
	return p.doc.drawing.resolve(op)
}

// imagePixels decodes the samples of the image op paints
func (p *Page) imagePixels(ctx context.Context, op Operation) (image.Image, error) {
	if err := p.doc.enter(ctx); err != nil {
		return nil, err
	}
	defer p.doc.mu.RUnlock()

	if p.doc.drawing == nil {
		return nil, fmt.Errorf("decode image: %w", ErrUnsupported)
	}
	return p.doc.drawing.pixels(op)
}

// Render draws the page into dst. With the mupdf renderer MuPDF
// rasterizes the page; otherwise, or when MuPDF fails, the page is
// painted from its drawing operations and text runs.
func (p *Page) Render(ctx context.Context, dst draw.Image, vp Viewport) error {
	done, err := p.renderRaster(ctx, dst, vp)
	if err != nil || done {
		return err
	}

	items, err := p.TextContent(ctx)
	if err != nil {
		return err
	}

	ops, err := p.Operations(ctx)
	if err != nil {
		if !errors.Is(err, ErrUnsupported) {
			p.doc.log.WithError(err).WithField("page", p.number).Debug("drawing text only")
		}
		ops = nil
	}

	r := renderer{
		dst:      dst,
		viewport: vp,
		pageW:    p.box.width,
		pageH:    p.box.height,
		resolve: func(op Operation) (Object, image.Image) {
			obj, err := p.ResolveObject(ctx, op)
			if err != nil || obj.Subtype != SubtypeImage {
				return obj, nil
			}
			pix, err := p.imagePixels(ctx, op)
			if err != nil {
				p.doc.log.WithError(err).WithField("image", obj.Name).Debug("drawing image placeholder")
			}
			return obj, pix
		},
	}
	return r.render(ctx, ops, items)
}

// renderRaster renders with the raster source when there is one
func (p *Page) renderRaster(ctx context.Context, dst draw.Image, vp Viewport) (bool, error) {
	if err := p.doc.enter(ctx); err != nil {
		return false, err
	}
	defer p.doc.mu.RUnlock()

	if p.doc.raster == nil {
		return false, nil
	}
	if err := p.doc.raster.render(p.number, dst, vp); err != nil {
		p.doc.log.WithError(err).WithField("page", p.number).Warn("mupdf render failed, painting page")
		return false, nil
	}
	return true, nil
}
