// Package storage defines the object store the dataset snapshots live in and
// the key layout under a snapshot prefix.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
	// Metadata holds the user metadata stored with the object.
	Metadata map[string]string
}

type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// ObjectReader is all that loading a snapshot needs.
type ObjectReader interface {
	// Get returns ErrObjectNotFound (possibly wrapped) for a missing key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (ObjectInfo, error)
}

// ObjectWriter is all that publishing a snapshot needs.
type ObjectWriter interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

type ObjectStore interface {
	ObjectReader
	ObjectWriter
}
