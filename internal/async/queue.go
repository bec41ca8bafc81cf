package async

import (
	"context"
	"errors"
	"time"
)

// Job is one queued detection run.
type Job struct {
	BlueprintID string
	SessionID   string
	Confidence  float64
	SubmittedAt time.Time
}

// Queue accepts detection runs for background execution.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

var (
	// ErrQueueFull rejects an enqueue when the buffer has no room. Callers
	// surface it as backpressure instead of blocking the request.
	ErrQueueFull = errors.New("queue full")
	// ErrQueueClosed rejects enqueues once shutdown has begun.
	ErrQueueClosed = errors.New("queue closed")
)
