package archive

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("archive: object not found")

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
}

type PutOptions struct {
	ContentType string
}

// Store keeps the raw bytes of uploaded documents so they can be re-served
// or re-indexed later. Keys are the uploaded filenames.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
