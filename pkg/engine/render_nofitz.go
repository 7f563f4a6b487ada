//go:build !fitz

package engine

import "fmt"

const mupdfAvailable = false

func openRaster([]byte) (rasterSource, error) {
	return nil, fmt.Errorf("mupdf renderer: %w", ErrUnsupported)
}
