package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/pyhub-apps/pdfviewer-golang/pkg/engine"
)

// ImageRef is an image XObject painted on a page. Images are enumerated,
// never decoded.
type ImageRef struct {
	PageNumber int `json:"page_number"`
	// Index is sequential across the whole document, starting at 0
	Index  int                `json:"index"`
	Handle engine.Object      `json:"handle"`
	BBox   engine.BoundingBox `json:"bbox"`
}

// Images walks the drawing operations of every page and records each
// painted image. An XObject that cannot be resolved is skipped; any
// other failure gives nil and false.
func (s *Session) Images(ctx context.Context) ([]ImageRef, bool) {
	refs := []ImageRef{}
	for n := 1; n <= s.PageCount; n++ {
		found, err := s.pageImages(ctx, n, len(refs))
		if err != nil {
			s.log.WithError(err).WithField("page", n).Warn("image enumeration failed")
			return nil, false
		}
		refs = append(refs, found...)
	}
	return refs, true
}

func (s *Session) pageImages(ctx context.Context, n, index int) ([]ImageRef, error) {
	ph, err := s.handle.Page(ctx, n)
	if err != nil {
		return nil, err
	}
	ops, err := ph.Operations(ctx)
	if err != nil {
		return nil, err
	}

	var refs []ImageRef
	for _, op := range ops {
		if !op.IsXObjectPaint() {
			continue
		}
		obj, err := ph.ResolveObject(ctx, op)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, engine.ErrClosed) {
				return nil, fmt.Errorf("failed to resolve %v: %w", op.Operands, err)
			}
			s.log.WithError(err).WithField("page", n).WithField("operands", op.Operands).Debug("skipping unresolved XObject")
			continue
		}
		if obj.Subtype != engine.SubtypeImage {
			continue
		}
		refs = append(refs, ImageRef{
			PageNumber: n,
			Index:      index + len(refs),
			Handle:     obj,
			BBox:       obj.Placement,
		})
	}
	return refs, nil
}
