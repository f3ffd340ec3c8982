// Package jobs defines the housekeeping tasks the worker runs on a schedule.
package jobs

import (
	"context"
	"time"
)

// Job type constants
const (
	JobTypeSweepSessions = "cleanup:expired_sessions"
	JobTypeWarmProvinces = "address:warm_provinces"
)

// Job is a named task run every Interval. Timeout bounds a single run.
type Job struct {
	Type     string
	Interval time.Duration
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}
