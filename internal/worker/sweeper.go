// Package worker runs the server-side expiry sweep. Expiry must not depend
// on an owner's browser happening to poll: the sweep is the authoritative
// mechanism, and client countdowns are display only.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// Expirer is the slice of the item service the sweep drives.
type Expirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

type ExpirySweeper struct {
	items    Expirer
	interval time.Duration
}

func NewExpirySweeper(items Expirer, interval time.Duration) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ExpirySweeper{items: items, interval: interval}
}

// Run sweeps on a fixed tick until ctx is cancelled. Each pass routes
// overdue items through the same transition path as manual status changes,
// so a sweep racing a pickup has exactly one winner and re-running after a
// restart never double-fires.
func (s *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Sweep once on startup to catch items that went overdue while the
	// server was down.
	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ExpirySweeper) sweep(ctx context.Context) {
	started := time.Now()
	expired, err := s.items.ExpireOverdue(ctx)
	if err != nil {
		slog.Error("expiry sweep failed", "error", err)
		return
	}

	if expired > 0 {
		slog.Info("expiry sweep completed",
			"expired", expired,
			"duration_ms", time.Since(started).Milliseconds())
	}
}
