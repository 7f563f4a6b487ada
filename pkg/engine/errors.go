package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed is returned when a buffer cannot be parsed as PDF
	ErrMalformed = errors.New("malformed PDF")

	// ErrEncrypted is returned for encrypted documents that cannot be opened
	ErrEncrypted = errors.New("encrypted PDF not supported without a valid password")

	// ErrUnsupported is returned when the active backend lacks a feature
	ErrUnsupported = errors.New("operation not supported by this backend")

	// ErrClosed is returned by handles whose document was closed
	ErrClosed = errors.New("document is closed")

	// ErrPageOutOfRange is returned for page numbers outside 1..NumPages
	ErrPageOutOfRange = errors.New("page number out of range")
)

// recoverError converts a panic raised inside a PDF library into an error.
// The readers signal malformed input by panicking.
func recoverError(err *error, what string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("failed to %s: %v", what, r)
	}
}
