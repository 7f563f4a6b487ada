package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/sirupsen/logrus"
)

// Text backends
const (
	BackendAuto       = "auto"
	BackendLedongthuc = "ledongthuc"
	BackendDslipak    = "dslipak"
)

// Page renderers
const (
	RendererPreview = "preview"
	RendererMuPDF   = "mupdf"
)

// Structure validation modes
const (
	ValidationStrict  = "strict"
	ValidationRelaxed = "relaxed"
	ValidationOff     = "off"
)

// Config holds engine settings. It is passed once to New by the
// composition root; nothing inside the engine reads ambient state.
type Config struct {
	// TextBackend selects the text reader: auto tries ledongthuc
	// first and falls back to dslipak
	TextBackend string `yaml:"text_backend" json:"text_backend"`

	// Password is tried for encrypted documents
	Password string `yaml:"password" json:"-"`

	// Validation controls pdfcpu structure validation. With relaxed,
	// a document pdfcpu rejects is still opened from the text backend.
	Validation string `yaml:"validation" json:"validation"`

	// UnicodeNorm normalizes text runs: "", "NFC" or "NFKC"
	UnicodeNorm string `yaml:"unicode_norm" json:"unicode_norm"`

	// MaxPages rejects larger documents; 0 means unlimited
	MaxPages int `yaml:"max_pages" json:"max_pages"`

	// Renderer selects how pages are rasterized: preview paints the
	// page operations in Go, mupdf renders through MuPDF and needs a
	// build with the fitz tag
	Renderer string `yaml:"renderer" json:"renderer"`
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() Config {
	return Config{
		TextBackend: BackendAuto,
		Validation:  ValidationRelaxed,
		UnicodeNorm: "NFC",
		Renderer:    RendererPreview,
	}
}

// Validate checks the configuration values
func (c Config) Validate() error {
	switch c.TextBackend {
	case BackendAuto, BackendLedongthuc, BackendDslipak:
	default:
		return fmt.Errorf("invalid text backend: %q (must be auto, ledongthuc or dslipak)", c.TextBackend)
	}
	switch c.Validation {
	case ValidationStrict, ValidationRelaxed, ValidationOff:
	default:
		return fmt.Errorf("invalid validation mode: %q (must be strict, relaxed or off)", c.Validation)
	}
	switch strings.ToUpper(c.UnicodeNorm) {
	case "", "NFC", "NFKC":
	default:
		return fmt.Errorf("invalid unicode normalization: %q", c.UnicodeNorm)
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("invalid max pages: %d", c.MaxPages)
	}
	switch c.Renderer {
	case "", RendererPreview, RendererMuPDF:
	default:
		return fmt.Errorf("invalid renderer: %q (must be preview or mupdf)", c.Renderer)
	}
	return nil
}

// ErrTooManyPages is returned when a document exceeds Config.MaxPages
var ErrTooManyPages = errors.New("document exceeds the configured page limit")

var pdfcpuInit sync.Once

// Engine opens documents. Create it with New.
type Engine struct {
	cfg Config
	log *logrus.Entry
}

// New initializes the engine. pdfcpu keeps its configuration in a
// process-wide directory by default; New switches it to in-memory
// defaults the first time it is called.
func New(cfg Config, logger *logrus.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Renderer == RendererMuPDF && !mupdfAvailable {
		return nil, fmt.Errorf("mupdf renderer needs a build with -tags fitz: %w", ErrUnsupported)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	pdfcpuInit.Do(api.DisableConfigDir)

	return &Engine{
		cfg: cfg,
		log: logger.WithField("component", "engine"),
	}, nil
}

// Config returns the configuration the engine was created with
func (e *Engine) Config() Config {
	return e.cfg
}

// Open parses a PDF held in memory
func (e *Engine) Open(ctx context.Context, data []byte) (DocumentHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrMalformed)
	}

	text, err := e.openText(data)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		log:     e.log,
		norm:    e.cfg.UnicodeNorm,
		version: headerVersion(data),
		text:    text,
	}
	if d, ok := text.(drawingSource); ok {
		doc.drawing = d
	}

	if e.cfg.Validation != ValidationOff {
		structure, err := openPDFCPU(data, e.cfg)
		switch {
		case err == nil:
			doc.structure = structure
		case e.cfg.Validation == ValidationStrict:
			return nil, classify(err)
		default:
			e.log.WithError(err).Warn("pdfcpu rejected the document, using text backend structure")
		}
	}

	doc.numPages = text.pageCount()
	if doc.structure != nil && doc.structure.pageCount() != doc.numPages {
		e.log.WithFields(logrus.Fields{
			"pdfcpu":        doc.structure.pageCount(),
			text.backend(): doc.numPages,
		}).Warn("page count mismatch between backends")
		doc.numPages = min(doc.numPages, doc.structure.pageCount())
	}
	if e.cfg.MaxPages > 0 && doc.numPages > e.cfg.MaxPages {
		return nil, fmt.Errorf("%w: %d pages, limit %d", ErrTooManyPages, doc.numPages, e.cfg.MaxPages)
	}

	if e.cfg.Renderer == RendererMuPDF {
		raster, err := openRaster(data)
		if err != nil {
			e.log.WithError(err).Warn("mupdf could not open the document, painting pages instead")
		} else {
			doc.raster = raster
		}
	}

	e.log.WithFields(logrus.Fields{
		"backend": text.backend(),
		"pages":   doc.numPages,
		"version": doc.version,
		"pdfcpu":  doc.structure != nil,
		"mupdf":   doc.raster != nil,
	}).Debug("document opened")

	return doc, nil
}

// openText opens the text backend, trying ledongthuc before dslipak
// when the backend is auto
func (e *Engine) openText(data []byte) (textSource, error) {
	switch e.cfg.TextBackend {
	case BackendLedongthuc:
		src, err := openLedongthuc(data, e.cfg.Password)
		if err != nil {
			return nil, classify(err)
		}
		return src, nil
	case BackendDslipak:
		src, err := openDslipak(data)
		if err != nil {
			return nil, classify(err)
		}
		return src, nil
	}

	src, err := openLedongthuc(data, e.cfg.Password)
	if err == nil {
		return src, nil
	}
	if errors.Is(err, lpdf.ErrInvalidPassword) {
		return nil, classify(err)
	}
	e.log.WithError(err).Debug("ledongthuc rejected the document, trying dslipak")

	fallback, ferr := openDslipak(data)
	if ferr != nil {
		return nil, classify(err)
	}
	return fallback, nil
}

// classify maps a backend error onto ErrMalformed or ErrEncrypted
func classify(err error) error {
	if errors.Is(err, ErrMalformed) || errors.Is(err, ErrEncrypted) {
		return err
	}
	if errors.Is(err, lpdf.ErrInvalidPassword) {
		return fmt.Errorf("%w: %v", ErrEncrypted, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "password") || strings.Contains(msg, "encrypt") {
		return fmt.Errorf("%w: %v", ErrEncrypted, err)
	}
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}

// passwordOnce yields the password a single time, as NewReaderEncrypted
// keeps asking until it receives an empty string
func passwordOnce(password string) func() string {
	used := false
	return func() string {
		if used {
			return ""
		}
		used = true
		return password
	}
}
