package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

const (
	defaultInitialBackoffWhenZero = 500 * time.Millisecond
	backoffMultiplier             = 2
)

// BulkJobInserter inserts many River jobs in one round trip (e.g. *river.Client).
type BulkJobInserter interface {
	JobInserter
	InsertMany(ctx context.Context, params []river.InsertManyParams) ([]*rivertype.JobInsertResult, error)
}

// RetryingJobInserter wraps a BulkJobInserter and retries failed inserts with exponential
// backoff and jitter. Use for transient River/DB errors.
type RetryingJobInserter struct {
	inner          BulkJobInserter
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

// RetryingJobInserterConfig holds configuration for the retrying inserter.
type RetryingJobInserterConfig struct {
	MaxRetries     int           // Retries after the first attempt (total attempts = 1 + MaxRetries).
	InitialBackoff time.Duration // Backoff after the first failure; doubles each attempt up to MaxBackoff.
	MaxBackoff     time.Duration
	Logger         *slog.Logger
}

// NewRetryingJobInserter returns an inserter that retries Insert and InsertMany on error.
func NewRetryingJobInserter(inner BulkJobInserter, cfg RetryingJobInserterConfig) *RetryingJobInserter {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaultInitialBackoffWhenZero
	}

	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &RetryingJobInserter{
		inner:          inner,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         cfg.Logger,
	}
}

// Insert enqueues one job, retrying on error.
func (r *RetryingJobInserter) Insert(
	ctx context.Context, args river.JobArgs, opts *river.InsertOpts,
) (*rivertype.JobInsertResult, error) {
	return retry(ctx, r, args.Kind(), func() (*rivertype.JobInsertResult, error) {
		return r.inner.Insert(ctx, args, opts)
	})
}

// InsertMany enqueues a batch of jobs, retrying the whole batch on error.
func (r *RetryingJobInserter) InsertMany(
	ctx context.Context, params []river.InsertManyParams,
) ([]*rivertype.JobInsertResult, error) {
	return retry(ctx, r, "batch", func() ([]*rivertype.JobInsertResult, error) {
		return r.inner.InsertMany(ctx, params)
	})
}

func retry[T any](ctx context.Context, r *RetryingJobInserter, kind string, call func() (T, error)) (T, error) {
	var (
		lastErr error
		zero    T
	)

	backoff := r.initialBackoff

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		out, err := call()
		if err == nil {
			return out, nil
		}

		lastErr = err

		if attempt == r.maxRetries {
			break
		}

		sleep := jitter(backoff)
		r.logger.WarnContext(ctx, "job enqueue failed, retrying after backoff",
			"kind", kind,
			"attempt", attempt+1,
			"max_attempts", r.maxRetries+1,
			"backoff", sleep,
			"error", err,
		)

		if err := sleepCtx(ctx, sleep); err != nil {
			return zero, err
		}

		backoff = min(backoff*backoffMultiplier, r.maxBackoff)
	}

	return zero, fmt.Errorf("enqueue %s: %w", kind, lastErr)
}

// jitter returns a duration between 50% and 100% of d.
func jitter(d time.Duration) time.Duration {
	half := d / 2
	if half <= 0 {
		return d
	}

	return half + rand.N(half)
}

// sleepCtx blocks for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

var _ BulkJobInserter = (*RetryingJobInserter)(nil)
