// internal/app/system/tasks/job.go
package tasks

import (
	"context"
	"time"
)

// Job is a named unit of periodic background work.
type Job struct {
	Name     string
	Interval time.Duration
	// Timeout bounds one Run. Zero means no deadline beyond shutdown.
	Timeout time.Duration
	// RunOnStart runs the job once immediately instead of waiting for the
	// first tick.
	RunOnStart bool
	Run        func(ctx context.Context) error
}
