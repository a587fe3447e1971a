package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/driver"
)

type retrier struct {
	cfg     *config.Config
	metrics *Metrics
	sleep   func(ctx context.Context, d time.Duration) error

	totalRetries int
}

func newRetrier(cfg *config.Config, metrics *Metrics) *retrier {
	return &retrier{
		cfg:     cfg,
		metrics: metrics,
		sleep:   sleepContext,
	}
}

// Do runs fn until it succeeds or the retry budget is spent, in which case
// the last failure is returned as *DriverError. Cancellation of ctx is
// returned as is and never retried.
func (r *retrier) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		start := time.Now()
		err := driver.Classify(fn(ctx))
		r.metrics.ObserveDriverCall(op, time.Since(start))
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		r.metrics.IncError(errorTypeLabel(err))
		if attempt > r.cfg.MaxRetries {
			return &DriverError{Op: op, Attempts: attempt, Err: err}
		}

		delay := r.backoff(attempt)
		r.totalRetries++
		r.metrics.IncRetries()
		slog.Warn("driver call failed, retrying",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
			slog.Any("error", err),
		)
		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func (r *retrier) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := r.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := r.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func (r *retrier) TotalRetries() int {
	return r.totalRetries
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
