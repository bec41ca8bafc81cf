package detector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Caller performs a single invocation attempt.
type Caller interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// Backoff computes the wait after a failed attempt: the base delay doubled
// each time, no jitter.
type Backoff struct {
	BaseDelay time.Duration
}

// Delay returns the wait after failed attempt i, counted from zero.
func (b Backoff) Delay(attempt int) time.Duration {
	d := b.BaseDelay
	if d <= 0 {
		d = time.Second
	}
	return d << attempt
}

// RetryConfig bounds the invocation retry loop.
type RetryConfig struct {
	// MaxAttempts is the total attempt budget, first try included.
	MaxAttempts int
	// BaseDelay seeds the exponential backoff between attempts.
	BaseDelay time.Duration
}

// Invoker drives a Caller with bounded retries. Transient failures are
// retried with exponential backoff; terminal and unclassified failures
// propagate immediately.
type Invoker struct {
	client  Caller
	backoff Backoff
	max     int
	logger  *slog.Logger
}

// NewInvoker builds an Invoker, applying defaults for unset config values.
func NewInvoker(client Caller, cfg RetryConfig, logger *slog.Logger) *Invoker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Invoker{
		client:  client,
		backoff: Backoff{BaseDelay: cfg.BaseDelay},
		max:     cfg.MaxAttempts,
		logger:  logger,
	}
}

// Invoke calls the service until it succeeds, fails terminally, or the
// attempt budget runs out. The backoff wait aborts as soon as the context
// is done.
func (inv *Invoker) Invoke(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt < inv.max; attempt++ {
		resp, err := inv.client.Invoke(ctx, req)
		if err == nil {
			if attempt > 0 {
				inv.logger.Info("detector.invoke.recovered", "attempt", attempt+1)
			}
			return resp, nil
		}

		err = Classify(err)
		if !errors.Is(err, ErrTransient) {
			return nil, err
		}
		lastErr = err

		if attempt == inv.max-1 {
			break
		}
		delay := inv.backoff.Delay(attempt)
		inv.logger.Warn("detector.invoke.retry",
			"attempt", attempt+1,
			"max_attempts", inv.max,
			"delay", delay,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("detection failed after %d attempts. Last error: %w", inv.max, lastErr)
}
