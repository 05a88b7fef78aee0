package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hollis-labs/marketscout/internal/domain"
)

// Runner schedules sync runs: one immediately on start, then on a fixed
// interval, plus on-demand runs signaled through Trigger. Overlap is
// prevented by the syncer's run lock, not by the scheduler.
type Runner struct {
	syncer   *Syncer
	interval time.Duration
	trigger  chan struct{}
	logger   *slog.Logger
}

// NewRunner creates a Runner ticking at the given interval.
func NewRunner(syncer *Syncer, interval time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		syncer:   syncer,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		logger:   logger,
	}
}

// Trigger requests an out-of-band sync run. It never blocks; a request made
// while one is already queued is coalesced into it.
func (r *Runner) Trigger() bool {
	select {
	case r.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run blocks until ctx is cancelled, executing sync runs on the schedule.
// Individual run failures are logged and recorded on RunStatus; the loop
// keeps going.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("sync runner starting", slog.Duration("interval", r.interval))

	r.runOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("sync runner stopped")
			return ctx.Err()
		case <-ticker.C:
			r.runOnce(ctx)
		case <-r.trigger:
			r.logger.Info("sync run triggered on demand")
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	summary, err := r.syncer.RunSync(ctx)
	switch {
	case errors.Is(err, domain.ErrLockHeld):
		r.logger.Warn("sync run skipped, another run holds the lock")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Shutdown in progress; the outer loop observes ctx.Done.
	case err != nil:
		r.logger.Error("sync run failed", slog.String("error", err.Error()))
	default:
		r.logger.Info("sync run succeeded",
			slog.Int("event_count", summary.EventCount),
			slog.Int("market_count", summary.MarketCount),
		)
	}
}
