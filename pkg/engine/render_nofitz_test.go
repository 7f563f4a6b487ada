//go:build !fitz

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMuPDFRendererNeedsBuildTag(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Renderer = RendererMuPDF
	assert.NoError(t, cfg.Validate())

	_, err := New(cfg, quietLogger())
	assert.ErrorIs(t, err, ErrUnsupported)
}
