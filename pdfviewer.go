// Package pdfviewer loads PDF documents for viewing: page text, metadata,
// outline, embedded images and page previews.
package pdfviewer

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdfviewer-golang/pkg/engine"
	"github.com/pyhub-apps/pdfviewer-golang/pkg/session"
)

// Re-export types for the public API
type (
	Session     = session.Session
	Page        = session.Page
	File        = session.File
	OutlineNode = session.OutlineNode
	ImageRef    = session.ImageRef
	MetadataRow = session.MetadataRow
	Metadata    = engine.Metadata
	TextItem    = engine.TextItem
	Viewport    = engine.Viewport
	Config      = engine.Config
)

// Re-export helpers
var (
	TextOf        = session.TextOf
	FullText      = session.FullText
	MetadataRows  = session.MetadataRows
	DefaultConfig = engine.DefaultConfig
)

// Re-export errors
var (
	ErrInvalidInputType = session.ErrInvalidInputType
	ErrPageOutOfRange   = session.ErrPageOutOfRange
	ErrMalformed        = engine.ErrMalformed
	ErrEncrypted        = engine.ErrEncrypted
)

// Open loads the PDF file at path with the default engine configuration
func Open(ctx context.Context, path string) (*Session, error) {
	return OpenWithConfig(ctx, path, engine.DefaultConfig(), nil)
}

// OpenWithPassword loads a password-protected PDF file
func OpenWithPassword(ctx context.Context, path, password string) (*Session, error) {
	cfg := engine.DefaultConfig()
	cfg.Password = password
	return OpenWithConfig(ctx, path, cfg, nil)
}

// OpenWithConfig loads the PDF file at path. The content type is sniffed
// from the file's bytes, so anything that is not a PDF is rejected with
// ErrInvalidInputType.
func OpenWithConfig(ctx context.Context, path string, cfg Config, logger *logrus.Logger) (*Session, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	e, err := engine.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	return session.Load(ctx, e, File{
		Name:        filepath.Base(path),
		ContentType: DetectContentType(data),
		Data:        data,
	}, session.WithLogger(logrus.NewEntry(logger)))
}

// DetectContentType sniffs the media type of data
func DetectContentType(data []byte) string {
	return http.DetectContentType(data)
}
