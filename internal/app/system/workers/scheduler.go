// internal/app/system/workers/scheduler.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/groupdigest/internal/app/system/tasks"
	"go.uber.org/zap"
)

// Scheduler runs tasks.Jobs on their own tickers until stopped.
type Scheduler struct {
	jobs   []tasks.Job
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler for jobs. Jobs with a non-positive
// interval are skipped with a warning.
func NewScheduler(logger *zap.Logger, jobs ...tasks.Job) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{jobs: jobs, log: logger, ctx: ctx, cancel: cancel}
}

// Start launches one goroutine per job.
func (s *Scheduler) Start() {
	for _, j := range s.jobs {
		if j.Interval <= 0 {
			s.log.Warn("job has no interval; not scheduled", zap.String("job", j.Name))
			continue
		}
		s.wg.Add(1)
		go s.loop(j)
		s.log.Info("background job started",
			zap.String("job", j.Name),
			zap.Duration("interval", j.Interval))
	}
}

// Stop cancels in-flight runs and waits for every job goroutine to exit.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	s.log.Info("background jobs stopped")
}

func (s *Scheduler) loop(j tasks.Job) {
	defer s.wg.Done()

	if j.RunOnStart {
		s.runOnce(j)
	}

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(j)
		}
	}
}

func (s *Scheduler) runOnce(j tasks.Job) {
	ctx := s.ctx
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	start := time.Now()
	if err := j.Run(ctx); err != nil {
		if s.ctx.Err() != nil {
			return
		}
		s.log.Error("background job failed",
			zap.String("job", j.Name),
			zap.Duration("took", time.Since(start)),
			zap.Error(err))
	}
}
