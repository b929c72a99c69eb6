package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Runner schedules reconciliation passes: one immediately on startup as a
// first pass, then one per period forever. A failed pass is logged and the
// loop continues; only context cancellation stops it.
type Runner struct {
	engine *Engine
	period time.Duration
}

func NewRunner(engine *Engine, period time.Duration) *Runner {
	return &Runner{engine: engine, period: period}
}

func (r *Runner) Run(ctx context.Context) error {
	slog.Info("synchronizer starting", "period", r.period)

	if err := r.engine.Sync(ctx, true); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("initial sync failed", "error", err)
	}

	// a timer and not a ticker, to avoid queued ticks when a pass takes
	// longer than the period
	timer := time.NewTimer(r.period)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("synchronizer stopping")
			return ctx.Err()
		case <-timer.C:
			if err := r.engine.Sync(ctx, false); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("sync failed", "error", err)
			}
			timer.Reset(r.period)
		}
	}
}
