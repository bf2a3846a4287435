// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	digestsfeature "github.com/dalemusser/groupdigest/internal/app/features/digests"
	healthfeature "github.com/dalemusser/groupdigest/internal/app/features/health"
	auditstore "github.com/dalemusser/groupdigest/internal/app/store/audit"
	groupstore "github.com/dalemusser/groupdigest/internal/app/store/groups"
	membershipstore "github.com/dalemusser/groupdigest/internal/app/store/memberships"
	sgmstore "github.com/dalemusser/groupdigest/internal/app/store/subgroupmemberships"
	"github.com/dalemusser/groupdigest/internal/app/system/digest"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup and
// Startup have completed. groupdigest serves two feature routers: /health
// for load balancers and /digests for previewing a membership's next
// digest and triggering a sweep by hand.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if deps.runtime == nil {
		return nil, errNoRuntime
	}
	db := deps.MongoDatabase

	r := chi.NewRouter()

	// Health check endpoint for load balancers and orchestrators
	var rdb redis.Cmdable
	if deps.Redis != nil {
		rdb = deps.Redis
	}
	healthHandler := healthfeature.NewHandler(deps.MongoClient, rdb, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Digest preview and manual sweep
	var sweeper digestsfeature.Sweeper
	if deps.runtime.sweeper != nil {
		sweeper = deps.runtime.sweeper
	}
	digestsHandler := digestsfeature.NewHandler(
		membershipstore.New(db),
		groupstore.New(db),
		sgmstore.New(db),
		auditstore.New(db),
		sweeper,
		digest.Options{SendEmptyDigests: appCfg.SendEmptyDigests},
		logger,
	)
	r.Mount("/digests", digestsfeature.Routes(digestsHandler))

	return r, nil
}
