package port

import (
	"context"
	"time"
)

type CacheRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// ClearIdempotency releases a key so a rejected request can be retried
	ClearIdempotency(ctx context.Context, key string) error

	// AcquireLock takes key for token, returns false if someone else holds it
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)

	// ReleaseLock deletes key only if it is still held by token
	ReleaseLock(ctx context.Context, key, token string) error
}

// KeyValueStore holds opaque blobs under fixed keys.
type KeyValueStore interface {
	// Get returns ErrNotFound when key is absent
	Get(ctx context.Context, key string) ([]byte, error)

	Set(ctx context.Context, key string, value []byte) error

	Delete(ctx context.Context, key string) error
}
