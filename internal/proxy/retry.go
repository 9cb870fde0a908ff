package proxy

import (
	"context"
	"log/slog"
	"time"
)

// Default attempt counts for wallet calls. With the deferred retry service
// active a call gets a single urgent attempt and the rest happen in the
// background.
const (
	DefaultUrgentAttempts  = 6
	DeferredUrgentAttempts = 1
)

// RetryService re-delivers failed result calls in the background with capped
// attempts and a fixed delay between them.
type RetryService struct {
	tasks    chan func(ctx context.Context) error
	attempts int
	delay    time.Duration
	logger   *slog.Logger
	done     chan struct{}
}

// NewRetryService creates the worker. Start must be called before Defer.
func NewRetryService(attempts int, delay time.Duration, logger *slog.Logger) *RetryService {
	return &RetryService{
		tasks:    make(chan func(ctx context.Context) error, 256),
		attempts: attempts,
		delay:    delay,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start runs the worker until ctx is cancelled.
func (s *RetryService) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		for {
			select {
			case <-ctx.Done():
				return
			case task := <-s.tasks:
				s.run(ctx, task)
			}
		}
	}()
}

func (s *RetryService) run(ctx context.Context, task func(ctx context.Context) error) {
	for i := 0; i < s.attempts; i++ {
		if err := task(ctx); err == nil {
			return
		} else if i == s.attempts-1 {
			s.logger.Error("deferred retry exhausted", "attempts", s.attempts, "error", err)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.delay):
		}
	}
}

// Defer queues a task for background delivery. Returns false when the queue
// is full; the caller then keeps the error.
func (s *RetryService) Defer(task func(ctx context.Context) error) bool {
	select {
	case s.tasks <- task:
		return true
	default:
		return false
	}
}

// Wait blocks until the worker has stopped.
func (s *RetryService) Wait() { <-s.done }
