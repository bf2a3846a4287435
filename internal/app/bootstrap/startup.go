// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"

	auditstore "github.com/dalemusser/groupdigest/internal/app/store/audit"
	digeststore "github.com/dalemusser/groupdigest/internal/app/store/digests"
	groupstore "github.com/dalemusser/groupdigest/internal/app/store/groups"
	membershipstore "github.com/dalemusser/groupdigest/internal/app/store/memberships"
	sgmstore "github.com/dalemusser/groupdigest/internal/app/store/subgroupmemberships"
	"github.com/dalemusser/groupdigest/internal/app/system/digest"
	"github.com/dalemusser/groupdigest/internal/app/system/sweep"
	"github.com/dalemusser/groupdigest/internal/app/system/sweeplock"
	"github.com/dalemusser/groupdigest/internal/app/system/tasks"
	"github.com/dalemusser/groupdigest/internal/app/system/timeouts"
	"github.com/dalemusser/groupdigest/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

var errNoRuntime = errors.New("bootstrap: DBDeps was not built by ConnectDB")

// Startup builds the sweep runner and, when the sweep is enabled, starts
// the scheduler that ticks it.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.runtime == nil {
		return errNoRuntime
	}

	timeouts.Configure(timeouts.Config{Sweep: appCfg.SweepTimeout})

	deps.runtime.sweeper = newSweeper(appCfg, deps, logger)

	if !appCfg.SweepEnabled {
		logger.Info("digest sweep scheduler disabled; use POST /digests/sweep to run manually")
		return nil
	}

	job := tasks.DigestSweepJob(deps.runtime.sweeper, appCfg.SweepInterval, appCfg.SweepTimeout, nil, logger)
	deps.runtime.jobs = workers.NewScheduler(logger, job)
	deps.runtime.jobs.Start()
	logger.Info("digest sweep scheduler started",
		zap.Duration("interval", appCfg.SweepInterval),
		zap.Int("workers", appCfg.SweepWorkers),
		zap.String("lock", lockBackend(deps)))
	return nil
}

func newSweeper(appCfg AppConfig, deps DBDeps, logger *zap.Logger) *sweep.Runner {
	db := deps.MongoDatabase
	memberships := membershipstore.New(db)
	audits := auditstore.New(db)

	src := sweep.Sources{
		Memberships:         memberships,
		Groups:              groupstore.New(db),
		SubgroupMemberships: sgmstore.New(db),
		Audits:              audits,
	}
	committer := sweep.NewMongoCommitter(deps.MongoClient, memberships, digeststore.New(db), logger)

	// Redis when configured; otherwise claims go to the sweep_runs
	// collection so each UTC day is still swept once.
	var lock sweep.Locker = sweeplock.NewMongo(db)
	if deps.Redis != nil {
		lock = sweeplock.New(deps.Redis, appCfg.SweepLockTTL)
	}

	return sweep.New(src, committer, lock, sweep.Config{
		Workers:        appCfg.SweepWorkers,
		PageSize:       int64(appCfg.SweepPageSize),
		LookbackMargin: appCfg.SweepLookbackMargin,
		Planner:        digest.Options{SendEmptyDigests: appCfg.SendEmptyDigests},
	}, logger)
}

func lockBackend(deps DBDeps) string {
	if deps.Redis != nil {
		return "redis"
	}
	return "mongo"
}
