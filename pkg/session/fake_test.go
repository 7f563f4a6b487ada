package session

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"

	"github.com/pyhub-apps/pdfviewer-golang/pkg/engine"
)

// fakeOpener is an in-memory engine.Opener
type fakeOpener struct {
	doc   *fakeDoc
	err   error
	calls int
}

func (o *fakeOpener) Open(ctx context.Context, data []byte) (engine.DocumentHandle, error) {
	o.calls++
	if o.err != nil {
		return nil, o.err
	}
	return o.doc, nil
}

type fakeDoc struct {
	metadata    engine.Metadata
	metadataErr error
	pages       []*fakePage
	pageErr     map[int]error
	outline     []engine.OutlineItem
	outlineErr  error

	requested []int
	closed    int
}

func (d *fakeDoc) NumPages() int {
	return len(d.pages)
}

func (d *fakeDoc) Metadata(ctx context.Context) (engine.Metadata, error) {
	return d.metadata, d.metadataErr
}

func (d *fakeDoc) Page(ctx context.Context, n int) (engine.PageHandle, error) {
	d.requested = append(d.requested, n)
	if err := d.pageErr[n]; err != nil {
		return nil, err
	}
	if n < 1 || n > len(d.pages) {
		return nil, engine.ErrPageOutOfRange
	}
	p := d.pages[n-1]
	p.number = n
	return p, nil
}

func (d *fakeDoc) Outline(ctx context.Context) ([]engine.OutlineItem, error) {
	return d.outline, d.outlineErr
}

func (d *fakeDoc) Close() error {
	d.closed++
	return nil
}

type fakePage struct {
	number  int
	items   []engine.TextItem
	textErr error
	ops     []engine.Operation
	opsErr  error
	objects map[string]engine.Object
	width   float64
	height  float64
	renders int
}

func (p *fakePage) Number() int {
	return p.number
}

func (p *fakePage) TextContent(ctx context.Context) ([]engine.TextItem, error) {
	return p.items, p.textErr
}

func (p *fakePage) Viewport(scale float64) engine.Viewport {
	w, h := p.width, p.height
	if w == 0 {
		w, h = 612, 792
	}
	return engine.Viewport{Width: w * scale, Height: h * scale, Scale: scale}
}

func (p *fakePage) Operations(ctx context.Context) ([]engine.Operation, error) {
	return p.ops, p.opsErr
}

func (p *fakePage) ResolveObject(ctx context.Context, op engine.Operation) (engine.Object, error) {
	if len(op.Operands) == 0 {
		return engine.Object{}, errors.New("no operands")
	}
	obj, ok := p.objects[op.Operands[0]]
	if !ok {
		return engine.Object{}, errors.New("unknown object")
	}
	return obj, nil
}

func (p *fakePage) Render(ctx context.Context, dst draw.Image, vp engine.Viewport) error {
	p.renders++
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	return nil
}

func textPage(strs ...string) *fakePage {
	p := &fakePage{}
	for i, s := range strs {
		p.items = append(p.items, engine.TextItem{Str: s, X: float64(i * 10), Y: 700})
	}
	return p
}

func paint(name string) engine.Operation {
	return engine.Operation{Operator: "Do", Operands: []string{name}}
}

func pdfFile() File {
	return File{Name: "doc.pdf", ContentType: ContentTypePDF, Data: []byte("%PDF-1.4")}
}
