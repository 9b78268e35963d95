package port

import (
	"context"
	"errors"
)

// ErrDuplicate is returned by repositories when a unique constraint rejects a write
var ErrDuplicate = errors.New("duplicate record")

// BlobStore keeps receipt files and hands back opaque references
type BlobStore interface {
	// Put stores content under key and returns the reference to persist
	Put(ctx context.Context, key string, content []byte, contentType string) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
}
