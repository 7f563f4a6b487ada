package engine

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pdfcpuSource is the validated structure of a document: page boxes,
// bookmarks and the encryption flag
type pdfcpuSource struct {
	ctx *model.Context
}

// openPDFCPU reads and validates a PDF held in memory with pdfcpu
func openPDFCPU(data []byte, cfg Config) (src *pdfcpuSource, err error) {
	defer recoverError(&err, "read PDF context")

	conf := model.NewDefaultConfiguration()
	if cfg.Password != "" {
		conf.UserPW = cfg.Password
		conf.OwnerPW = cfg.Password
	}
	conf.ValidationMode = model.ValidationRelaxed
	if cfg.Validation == ValidationStrict {
		conf.ValidationMode = model.ValidationStrict
	}

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}

	if err := api.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("invalid PDF: %w", err)
	}

	return &pdfcpuSource{ctx: ctx}, nil
}

func (s *pdfcpuSource) pageCount() int {
	return s.ctx.PageCount
}

func (s *pdfcpuSource) encrypted() bool {
	return s.ctx.Encrypt != nil
}

// pageBox reads the page's inherited MediaBox and rotation
func (s *pdfcpuSource) pageBox(number int) (box pageBox, err error) {
	defer recoverError(&err, "read page dictionary")

	_, _, attrs, err := s.ctx.PageDict(number, false)
	if err != nil {
		return pageBox{}, fmt.Errorf("failed to get page dict: %w", err)
	}

	box = defaultPageBox
	if attrs != nil {
		if attrs.MediaBox != nil {
			box.width = attrs.MediaBox.Width()
			box.height = attrs.MediaBox.Height()
		}
		box.rotate = attrs.Rotate
	}
	return box, nil
}

// outline converts pdfcpu bookmarks. A document without bookmarks
// yields an empty, non-nil slice. pdfcpu leaves out entries that have
// no destination, so this is only used when the text backend cannot
// walk the outline itself.
func (s *pdfcpuSource) outline() (items []OutlineItem, err error) {
	defer recoverError(&err, "read bookmarks")

	bms, err := pdfcpu.Bookmarks(s.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read bookmarks: %w", err)
	}
	return convertBookmarks(bms, s.ctx.PageCount), nil
}

func convertBookmarks(bms []pdfcpu.Bookmark, pageCount int) []OutlineItem {
	items := make([]OutlineItem, 0, len(bms))
	for _, bm := range bms {
		page := bm.PageFrom
		if page < 1 || page > pageCount {
			page = 0
		}
		item := OutlineItem{Title: bm.Title, Page: page}
		if len(bm.Kids) > 0 {
			item.Children = convertBookmarks(bm.Kids, pageCount)
		}
		items = append(items, item)
	}
	return items
}
