// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for groupdigest.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, sweep_interval, etc.
//   - Environment variables: GROUPDIGEST_MONGO_URI, GROUPDIGEST_SWEEP_INTERVAL, etc.
//   - Command-line flags: --mongo_uri, --sweep_interval, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "groupdigest", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Sweep lock
	{Name: "redis_url", Default: "", Desc: "Redis URL or host:port for the sweep lock (blank uses MongoDB)"},

	// Digest sweep
	{Name: "sweep_enabled", Default: true, Desc: "Run the digest sweep on a ticker"},
	{Name: "sweep_interval", Default: "1h", Desc: "Time between sweep ticks (e.g., 1h, 15m)"},
	{Name: "sweep_workers", Default: 8, Desc: "Concurrent plan/commit workers per sweep"},
	{Name: "sweep_page_size", Default: 500, Desc: "Memberships loaded per page"},
	{Name: "sweep_lookback_margin", Default: "1h", Desc: "Extra audit window below the oldest watermark"},
	{Name: "sweep_lock_ttl", Default: "23h", Desc: "How long a completed sweep holds its UTC day slot"},
	{Name: "sweep_timeout", Default: "30m", Desc: "Upper bound on one sweep run"},
	{Name: "send_empty_digests", Default: false, Desc: "Write a digest on scheduled ticks even when nothing is eligible"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, GROUPDIGEST_* for app) and
// flags, merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "GROUPDIGEST", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		RedisURL: strings.TrimSpace(appValues.String("redis_url")),

		SweepEnabled:        appValues.Bool("sweep_enabled"),
		SweepInterval:       appValues.Duration("sweep_interval", time.Hour),
		SweepWorkers:        appValues.Int("sweep_workers"),
		SweepPageSize:       appValues.Int("sweep_page_size"),
		SweepLookbackMargin: appValues.Duration("sweep_lookback_margin", time.Hour),
		SweepLockTTL:        appValues.Duration("sweep_lock_ttl", 23*time.Hour),
		SweepTimeout:        appValues.Duration("sweep_timeout", 30*time.Minute),
		SendEmptyDigests:    appValues.Bool("send_empty_digests"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// groupdigest validates the MongoDB URI and Redis URL formats and the
// sweep tuning values so mistakes fail at startup instead of on the
// first tick.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if err := validateApp(appCfg); err != nil {
		logger.Error("invalid app config", zap.Error(err))
		return err
	}
	return nil
}

// validateApp checks everything except the MongoDB URI.
func validateApp(appCfg AppConfig) error {
	var problems []string

	if appCfg.MongoDatabase == "" {
		problems = append(problems, "mongo_database is required")
	}
	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize {
		problems = append(problems, "mongo_min_pool_size must not exceed mongo_max_pool_size")
	}
	if appCfg.SweepEnabled && appCfg.SweepInterval <= 0 {
		problems = append(problems, "sweep_interval must be positive")
	}
	if appCfg.SweepWorkers <= 0 {
		problems = append(problems, "sweep_workers must be positive")
	}
	if appCfg.SweepPageSize <= 0 {
		problems = append(problems, "sweep_page_size must be positive")
	}
	if appCfg.SweepLookbackMargin < 0 {
		problems = append(problems, "sweep_lookback_margin must not be negative")
	}
	if appCfg.SweepTimeout <= 0 {
		problems = append(problems, "sweep_timeout must be positive")
	}
	if appCfg.RedisURL != "" {
		if appCfg.SweepLockTTL <= 0 {
			problems = append(problems, "sweep_lock_ttl must be positive when redis_url is set")
		}
		if strings.Contains(appCfg.RedisURL, "://") {
			if _, err := redis.ParseURL(appCfg.RedisURL); err != nil {
				problems = append(problems, "invalid redis_url: "+err.Error())
			}
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
