// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/groupdigest/internal/app/system/sweep"
	"github.com/dalemusser/groupdigest/internal/app/system/workers"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Redis backs the sweep lock; nil when redis_url is blank.
	Redis *redis.Client

	// runtime is allocated by ConnectDB and filled in by Startup, so the
	// hooks that receive DBDeps by value share it.
	runtime *runtime
}

type runtime struct {
	sweeper *sweep.Runner
	jobs    *workers.Scheduler
}
