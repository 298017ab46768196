package worker

import (
	"context"
	"log/slog"
	"time"
)

// TokenCleaner is the slice of the token store the janitor drives.
type TokenCleaner interface {
	CleanExpired(ctx context.Context) (int64, error)
}

// TokenJanitor deletes expired refresh tokens so the table does not grow
// without bound. Expired tokens are already rejected on use; this is purely
// hygiene.
type TokenJanitor struct {
	tokens   TokenCleaner
	interval time.Duration
}

func NewTokenJanitor(tokens TokenCleaner, interval time.Duration) *TokenJanitor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &TokenJanitor{tokens: tokens, interval: interval}
}

func (j *TokenJanitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("token janitor stopped")
			return
		case <-ticker.C:
			removed, err := j.tokens.CleanExpired(ctx)
			if err != nil {
				slog.Error("token cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.Info("token cleanup completed", "removed", removed)
			}
		}
	}
}
