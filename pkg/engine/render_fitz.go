//go:build fitz

package engine

import (
	"fmt"
	"image"

	fitz "github.com/gen2brain/go-fitz"
	"golang.org/x/image/draw"
)

const mupdfAvailable = true

// fitzRaster renders pages with MuPDF through go-fitz
type fitzRaster struct {
	doc *fitz.Document
}

func openRaster(data []byte) (rasterSource, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF with mupdf: %w", err)
	}
	return &fitzRaster{doc: doc}, nil
}

func (f *fitzRaster) render(number int, dst draw.Image, vp Viewport) error {
	img, err := f.doc.ImageDPI(number-1, 72*vp.Scale)
	if err != nil {
		return fmt.Errorf("failed to render page %d with mupdf: %w", number, err)
	}

	w, h := vp.PixelSize()
	target := image.Rect(0, 0, w, h).Intersect(dst.Bounds())
	if img.Bounds().Size() == target.Size() {
		draw.Draw(dst, target, img, img.Bounds().Min, draw.Src)
		return nil
	}
	draw.BiLinear.Scale(dst, target, img, img.Bounds(), draw.Src, nil)
	return nil
}

func (f *fitzRaster) close() error {
	return f.doc.Close()
}
