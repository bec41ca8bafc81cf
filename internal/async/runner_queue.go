package async

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/innergy/blueprint-detection/internal/entity"
)

// Runner executes one detection run; the pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, sessionID, blueprintID string, confidence float64) (*entity.Results, error)
}

// RunnerQueue is a bounded worker pool over a Runner. Each job runs under
// its own timeout, detached from the request that enqueued it.
type RunnerQueue struct {
	runner  Runner
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

var _ Queue = (*RunnerQueue)(nil)

type Option func(*RunnerQueue)

func WithWorkers(n int) Option {
	return func(q *RunnerQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *RunnerQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithRunTimeout(d time.Duration) Option {
	return func(q *RunnerQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewRunnerQueue(runner Runner, logger *slog.Logger, opts ...Option) *RunnerQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &RunnerQueue{
		runner:  runner,
		logger:  logger,
		workers: 2,
		timeout: 5 * time.Minute,
		ch:      make(chan Job, 16),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *RunnerQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					_, err := q.runner.Run(ctx, job.SessionID, job.BlueprintID, job.Confidence)
					cancel()

					if err != nil {
						q.logger.Error("background run failed", "worker_id", workerID, "blueprint_id", job.BlueprintID, "error", err)
					} else {
						q.logger.Info("background run completed", "worker_id", workerID, "blueprint_id", job.BlueprintID)
					}
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *RunnerQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "blueprint_id", job.BlueprintID)
		return ErrQueueClosed
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued detection run", "blueprint_id", job.BlueprintID, "session_id", job.SessionID)
		return nil
	default:
		q.logger.Warn("queue full, rejecting run", "blueprint_id", job.BlueprintID)
		return ErrQueueFull
	}
}

func (q *RunnerQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
