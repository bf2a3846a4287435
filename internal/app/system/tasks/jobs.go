// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/groupdigest/internal/app/system/sweep"
	"go.uber.org/zap"
)

// Sweeper is the part of *sweep.Runner a job needs.
type Sweeper interface {
	Run(ctx context.Context, now time.Time) (sweep.Summary, error)
}

// DigestSweepJob runs a digest sweep at every tick. A sweep that finds its
// slot locked by another replica (or an earlier tick today) is not an error.
func DigestSweepJob(s Sweeper, interval, timeout time.Duration, now func() time.Time, logger *zap.Logger) Job {
	if now == nil {
		now = time.Now
	}
	return Job{
		Name:       "digest-sweep",
		Interval:   interval,
		Timeout:    timeout,
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			sum, err := s.Run(ctx, now())
			if errors.Is(err, sweep.ErrLocked) {
				logger.Debug("digest sweep slot already taken")
				return nil
			}
			if err != nil {
				return err
			}
			if sum.Failed > 0 {
				logger.Warn("digest sweep finished with failures",
					zap.String("run_id", sum.RunID),
					zap.Int64("failed", sum.Failed))
			}
			return nil
		},
	}
}
