package blob

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("blob not found")

// Store is the object-storage abstraction the job record store runs on.
// Implementations must provide atomic per-key writes and read-after-write
// consistency; readers must never observe a partially written object.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error

	// List returns up to max keys under prefix, in lexical order. One page
	// only; callers that need more than max keys are out of contract.
	List(ctx context.Context, prefix string, max int32) ([]string, error)

	// PresignPut returns a URL authorizing a direct PUT of the key for ttl.
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)

	// URI renders an absolute reference to the key for external consumers.
	URI(key string) string
}
