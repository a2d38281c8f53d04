package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
	// maxAttempts bounds retries within one tick; the next tick starts over.
	maxAttempts = 5
)

// Refresher reloads a Pipeline on a fixed interval.
type Refresher struct {
	pipeline *Pipeline
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewRefresher creates a Refresher. A nil clock uses real time.
func NewRefresher(p *Pipeline, interval time.Duration, clock clockwork.Clock, logger *slog.Logger) *Refresher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Refresher{pipeline: p, interval: interval, clock: clock, logger: logger}
}

// Run reloads on every tick until the context is cancelled. A failed reload
// is retried with exponential backoff; the active dataset is untouched until
// a reload succeeds.
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Info("refresher started", "interval", r.interval)
	r.pipeline.metrics.RefresherRunning.Set(1)
	defer r.pipeline.metrics.RefresherRunning.Set(0)

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			r.reloadWithRetry(ctx)
		}
	}
}

// reloadWithRetry starts at 200ms, doubles each retry and caps at 5s.
func (r *Refresher) reloadWithRetry(ctx context.Context) {
	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		if _, err := r.pipeline.Reload(ctx); err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		if attempt == maxAttempts {
			r.logger.Warn("giving up until next refresh", "attempts", attempt)
			return
		}
		if !sleepWithContext(ctx, r.clock, backoff) {
			return
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
