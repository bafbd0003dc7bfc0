package workers

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper is the slice of the orchestrator the reaper needs.
type Sweeper interface {
	Reap(now time.Time) int
}

// Reaper periodically evicts clients that stopped polling. The sweep
// itself lives in the orchestrator; this worker only owns the cadence.
type Reaper struct {
	log      *slog.Logger
	sweeper  Sweeper
	interval time.Duration
}

func NewReaper(log *slog.Logger, sweeper Sweeper, interval time.Duration) *Reaper {
	return &Reaper{log: log, sweeper: sweeper, interval: interval}
}

func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("reaper started", "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("reaper stopping")
			return nil
		case <-ticker.C:
			evicted := r.sweeper.Reap(time.Now())
			if evicted > 0 {
				r.log.Info("reaper evicted clients", "count", evicted)
			} else {
				r.log.Debug("reaper sweep found nothing to evict")
			}
		}
	}
}
