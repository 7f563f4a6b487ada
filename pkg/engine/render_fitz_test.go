//go:build fitz

package engine

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyhub-apps/pdfviewer-golang/internal/pdftest"
)

func TestMuPDFRenderer(t *testing.T) {
	e := newTestEngine(t, func(c *Config) { c.Renderer = RendererMuPDF })
	doc, err := e.Open(context.Background(), pdftest.Build(pdftest.Document{
		Pages: []pdftest.Page{{Content: "1 0 0 rg 10 10 80 80 re f", Width: 100, Height: 100}},
	}))
	require.NoError(t, err)
	defer doc.Close()

	page, err := doc.Page(context.Background(), 1)
	require.NoError(t, err)
	vp := page.Viewport(1)
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	require.NoError(t, page.Render(context.Background(), img, vp))

	assert.InDelta(t, 6400, countPixels(img, isRed), 400)
	assert.True(t, isRed(img.RGBAAt(50, 50)))
}
