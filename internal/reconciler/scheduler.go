package reconciler

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler drives the two sweeps on independent timers. The jobs share no
// state, so their tickers run concurrently; cancelling the context stops
// both.
type Scheduler struct {
	rec            *Reconciler
	fineInterval   time.Duration
	expiryInterval time.Duration
}

func NewScheduler(rec *Reconciler, fineInterval, expiryInterval time.Duration) *Scheduler {
	return &Scheduler{rec: rec, fineInterval: fineInterval, expiryInterval: expiryInterval}
}

// Start launches both sweep loops. Each runs once at startup to catch up
// after downtime, then on its ticker.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx, "fine_sweep", s.fineInterval, func(ctx context.Context, asOf time.Time) error {
		_, err := s.rec.RunDailyFineSweep(ctx, asOf)
		return err
	})
	go s.loop(ctx, "expiry_sweep", s.expiryInterval, s.rec.RunExpirySweep)
}

func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, run func(context.Context, time.Time) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runOnce := func() {
		if err := run(ctx, s.rec.clock.Now()); err != nil && ctx.Err() == nil {
			slog.Error("sweep failed", "job", name, "error", err)
		}
	}

	runOnce()
	for {
		select {
		case <-ctx.Done():
			slog.Info("sweep scheduler stopped", "job", name)
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
