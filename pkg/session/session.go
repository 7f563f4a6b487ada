// Package session loads a PDF through the engine and keeps the per-page
// data the viewer displays.
package session

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"sync"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdfviewer-golang/pkg/engine"
)

// ContentTypePDF is the only accepted upload type
const ContentTypePDF = "application/pdf"

var (
	// ErrInvalidInputType is returned by Load for anything but application/pdf
	ErrInvalidInputType = errors.New("invalid input type: only application/pdf is accepted")

	// ErrPageOutOfRange is returned for page numbers outside 1..PageCount
	ErrPageOutOfRange = engine.ErrPageOutOfRange

	// ErrInvalidScale is returned when rendering at a scale that is not
	// a positive finite number
	ErrInvalidScale = errors.New("render scale must be positive and finite")
)

// LoadError reports that the engine could not open a document or one of
// its pages. No partial session exists when it is returned.
type LoadError struct {
	Name string
	// Page is the page that failed, or 0 when the document itself failed
	Page int
	Err  error
}

func (e *LoadError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("failed to load %q: page %d: %v", e.Name, e.Page, e.Err)
	}
	return fmt.Sprintf("failed to load %q: %v", e.Name, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// File is an uploaded document
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// IsPDF reports whether contentType is application/pdf, ignoring case
// and parameters
func IsPDF(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == ContentTypePDF
}

// Page is the eagerly fetched content of one page
type Page struct {
	Number    int               `json:"number"`
	TextItems []engine.TextItem `json:"text_items"`
	// Viewport is the page rectangle at scale 1.0
	Viewport engine.Viewport `json:"viewport"`
}

// Session is one loaded document. PageCount always equals len(Pages) and
// Pages[i].Number is i+1.
type Session struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Size      int             `json:"size"`
	PageCount int             `json:"page_count"`
	Metadata  engine.Metadata `json:"metadata"`
	Pages     []Page          `json:"-"`

	handle    engine.DocumentHandle
	log       *logrus.Entry
	closeOnce sync.Once
	closeErr  error
}

// Option configures Load
type Option func(*Session)

// WithLogger sets the logger used to report feature extraction failures
func WithLogger(log *logrus.Entry) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// Load opens file with the engine and fetches metadata, then the text
// items and unit-scale viewport of every page in order. Any failure
// releases the engine handle and returns a *LoadError.
func Load(ctx context.Context, opener engine.Opener, file File, opts ...Option) (*Session, error) {
	if !IsPDF(file.ContentType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidInputType, file.ContentType)
	}

	s := &Session{
		ID:   xid.New().String(),
		Name: file.Name,
		Size: len(file.Data),
		log:  logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("session", s.ID)

	handle, err := opener.Open(ctx, file.Data)
	if err != nil {
		return nil, &LoadError{Name: file.Name, Err: err}
	}

	if err := s.fetch(ctx, handle); err != nil {
		handle.Close()
		return nil, err
	}
	s.handle = handle
	return s, nil
}

func (s *Session) fetch(ctx context.Context, handle engine.DocumentHandle) error {
	md, err := handle.Metadata(ctx)
	if err != nil {
		return &LoadError{Name: s.Name, Err: err}
	}

	count := handle.NumPages()
	pages := make([]Page, 0, count)
	for n := 1; n <= count; n++ {
		if err := ctx.Err(); err != nil {
			return &LoadError{Name: s.Name, Page: n, Err: err}
		}
		page, err := fetchPage(ctx, handle, n)
		if err != nil {
			return &LoadError{Name: s.Name, Page: n, Err: err}
		}
		pages = append(pages, page)
	}

	s.Metadata = md
	s.Pages = pages
	s.PageCount = len(pages)
	return nil
}

func fetchPage(ctx context.Context, handle engine.DocumentHandle, n int) (Page, error) {
	ph, err := handle.Page(ctx, n)
	if err != nil {
		return Page{}, err
	}
	items, err := ph.TextContent(ctx)
	if err != nil {
		return Page{}, err
	}
	if items == nil {
		items = []engine.TextItem{}
	}
	return Page{
		Number:    n,
		TextItems: items,
		Viewport:  ph.Viewport(1.0),
	}, nil
}

// Page returns the fetched page n (1-based)
func (s *Session) Page(n int) (Page, error) {
	if n < 1 || n > s.PageCount {
		return Page{}, fmt.Errorf("%w: %d not in [1, %d]", ErrPageOutOfRange, n, s.PageCount)
	}
	return s.Pages[n-1], nil
}

// Summary is a short description of the document structure
type Summary struct {
	PageCount     int `json:"page_count"`
	TextItemCount int `json:"text_item_count"`
}

// Summary counts pages and text items
func (s *Session) Summary() Summary {
	sum := Summary{PageCount: s.PageCount}
	for _, p := range s.Pages {
		sum.TextItemCount += len(p.TextItems)
	}
	return sum
}

// Close releases the engine handle. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.handle != nil {
			s.closeErr = s.handle.Close()
		}
	})
	return s.closeErr
}
