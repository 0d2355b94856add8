// Package objstore abstracts the bucket that holds published artifacts.
package objstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("objstore: not found")

// Bucket is a flat key/value object store.
type Bucket interface {
	// Get opens the object at key. It returns ErrNotFound when absent.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Put writes the object at key, replacing any existing one.
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	// Name describes the bucket for logs.
	Name() string
}
