// Package storage holds the file-storage providers listings upload to and the
// aggregation used by the monthly storage history.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrInvalidKey is returned for object keys that are empty or escape the provider root.
var ErrInvalidKey = errors.New("storage: invalid object key")

// Object is a stored file as reported by a provider listing.
type Object struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// ObjectLister is the only provider surface the storage history depends on.
type ObjectLister interface {
	ListObjects(ctx context.Context, prefix string) ([]Object, error)
}

// Provider stores, removes and lists property files.
type Provider interface {
	ObjectLister
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
