// Package storage archives uploaded documents on the local filesystem or
// in an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Adapter names
const (
	AdapterLocal = "local"
	AdapterS3    = "s3"
)

// ErrNotFound is returned by Get for keys that hold no object
var ErrNotFound = errors.New("object not found")

// Adapter defines the interface for storage backends
type Adapter interface {
	// Put stores data under key, replacing any previous object
	Put(ctx context.Context, key string, data io.Reader) error

	// Get opens the object stored under key
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object under key; a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Exists checks if an object is stored under key
	Exists(ctx context.Context, key string) (bool, error)

	// List returns the keys starting with prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Close cleans up any resources
	Close() error
}

// UploadPrefix is the key prefix of archived uploads
const UploadPrefix = "uploads/"

// UploadKey is where an uploaded document of a session is archived
func UploadKey(sessionID string) string {
	return fmt.Sprintf("%s%s.pdf", UploadPrefix, sessionID)
}
