// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// Values come from config files, GROUPDIGEST_* environment variables or
// command-line flags (loaded in LoadConfig). HTTP ports, TLS, logging
// level and the like are WAFFLE core settings and live in CoreConfig.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// RedisURL moves the sweep slot lock to Redis. Blank keeps it in the
	// MongoDB sweep_runs collection.
	RedisURL string

	// Digest sweep
	SweepEnabled        bool          // run the sweep on a ticker
	SweepInterval       time.Duration // time between ticks
	SweepWorkers        int           // concurrent plan/commit workers
	SweepPageSize       int           // memberships loaded per page
	SweepLookbackMargin time.Duration // widen the candidate audit window by this much
	SweepLockTTL        time.Duration // how long a completed run holds its day slot
	SweepTimeout        time.Duration // upper bound on one sweep run
	SendEmptyDigests    bool          // write a digest on scheduled ticks even with no eligible audits
}
