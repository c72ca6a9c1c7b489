package storage

import (
	"context"
	"io"
	"time"
)

// ReceiptStorage stores payment receipt images. Object paths, not URLs, are
// persisted; URLs are presigned on read.
type ReceiptStorage interface {
	Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error)
	Delete(ctx context.Context, objectPath string) error
	GeneratePresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error)
}
