package repository

import "context"

// Index maps a blueprint id to its session namespace. It replaces the
// listing scan as the primary lookup path; the scan remains as fallback, so
// index failures degrade lookups instead of breaking them.
type Index interface {
	Put(ctx context.Context, blueprintID, sessionID string) error
	Lookup(ctx context.Context, blueprintID string) (string, error)
	Close() error
}
