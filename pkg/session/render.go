package session

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"math"
)

func checkScale(scale float64) error {
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidScale, scale)
	}
	return nil
}

// RenderPage draws page n at scale into dst and returns the rectangle
// the page covers. Every call renders again.
func (s *Session) RenderPage(ctx context.Context, dst draw.Image, n int, scale float64) (image.Rectangle, error) {
	if err := checkScale(scale); err != nil {
		return image.Rectangle{}, err
	}
	if _, err := s.Page(n); err != nil {
		return image.Rectangle{}, err
	}

	ph, err := s.handle.Page(ctx, n)
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("failed to get page %d: %w", n, err)
	}
	vp := ph.Viewport(scale)
	w, h := vp.PixelSize()
	if err := ph.Render(ctx, dst, vp); err != nil {
		return image.Rectangle{}, fmt.Errorf("failed to render page %d: %w", n, err)
	}
	return image.Rect(0, 0, w, h).Intersect(dst.Bounds()), nil
}

// RenderPageImage renders page n onto a new surface sized to its
// viewport at scale
func (s *Session) RenderPageImage(ctx context.Context, n int, scale float64) (*image.RGBA, error) {
	if err := checkScale(scale); err != nil {
		return nil, err
	}
	page, err := s.Page(n)
	if err != nil {
		return nil, err
	}

	w, h := page.Viewport.WithScale(scale).PixelSize()
	dst := image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	if _, err := s.RenderPage(ctx, dst, n, scale); err != nil {
		return nil, err
	}
	return dst, nil
}
