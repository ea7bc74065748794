package ports

import (
	"context"
	"time"

	"transfer-manager-api/internal/domain/session"
)

// ObjectStore is the object-store collaborator. Every call is fallible
// and retryable by the caller; the core never assumes success without
// an explicit completion signal.
type ObjectStore interface {
	PresignPutURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	CreateMultipartUpload(ctx context.Context, bucket, key, contentType string) (string, error)
	CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []session.CompletedPart) (string, error)
	AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error
	PutObject(ctx context.Context, bucket, key, contentType string, body []byte) (string, error)
	Bucket() string
}
