package jobs

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper drops expired entries and reports how many went.
type Sweeper interface {
	Sweep() int
}

// SweepSessions removes expired sessions from an in-process store. Redis
// expires keys itself, so this is only scheduled for the memory store.
func SweepSessions(store Sweeper, interval time.Duration, logger *slog.Logger) Job {
	return Job{
		Type:     JobTypeSweepSessions,
		Interval: interval,
		Timeout:  30 * time.Second,
		Run: func(ctx context.Context) error {
			if n := store.Sweep(); n > 0 {
				logger.Debug("expired sessions swept", slog.Int("count", n))
			}
			return nil
		},
	}
}
