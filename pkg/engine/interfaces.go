package engine

import (
	"context"
	"image/draw"
)

// Opener parses a complete PDF byte buffer into a document handle.
type Opener interface {
	// Open parses data and returns a handle owning the parsed document.
	// Errors wrap ErrMalformed or ErrEncrypted.
	Open(ctx context.Context, data []byte) (DocumentHandle, error)
}

// DocumentHandle represents an open PDF document owned by the engine
type DocumentHandle interface {
	// NumPages returns the total number of pages
	NumPages() int

	// Metadata returns the document information dictionary
	Metadata(ctx context.Context) (Metadata, error)

	// Page returns a specific page by number (1-based)
	Page(ctx context.Context, number int) (PageHandle, error)

	// Outline returns the top-level bookmarks. A document without
	// bookmarks yields an empty slice and no error.
	Outline(ctx context.Context) ([]OutlineItem, error)

	// Close releases resources associated with the document
	Close() error
}

// PageHandle represents a single page of an open document
type PageHandle interface {
	// Number returns the page number (1-based)
	Number() int

	// TextContent returns the text runs of the page in content-stream order
	TextContent(ctx context.Context) ([]TextItem, error)

	// Viewport returns the page rectangle mapped at the given scale
	Viewport(scale float64) Viewport

	// Operations returns the page's drawing operations, with form
	// XObjects expanded in place
	Operations(ctx context.Context) ([]Operation, error)

	// ResolveObject resolves the object an operation refers to
	ResolveObject(ctx context.Context, op Operation) (Object, error)

	// Render draws the page into dst using the given viewport
	Render(ctx context.Context, dst draw.Image, vp Viewport) error
}
