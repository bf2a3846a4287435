// Package sweeplock lets one sweep claim a digest sweep slot. Lock uses
// Redis with a TTL; MongoLock records the claim in the sweep_runs
// collection and is what runs when no Redis is configured.
package sweeplock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "groupdigest:sweep:"

// releaseScript deletes the key only if it still holds our token, so a
// lock that expired and was re-acquired elsewhere is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Connect initializes a Redis client from URL or host:port input.
func Connect(_ context.Context, redisURL string) (*redis.Client, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{Addr: redisURL}), nil
}

// Lock claims sweep slots with SET NX and a TTL.
type Lock struct {
	client redis.Cmdable
	ttl    time.Duration
}

// New returns a Lock whose claims expire after ttl.
func New(client redis.Cmdable, ttl time.Duration) *Lock {
	return &Lock{client: client, ttl: ttl}
}

// Key returns the Redis key for slot.
func Key(slot string) string {
	return keyPrefix + slot
}

// Acquire claims slot. acquired is false when another holder has it.
// release gives the slot up early; it is a no-op if the claim already
// expired.
func (l *Lock) Acquire(ctx context.Context, slot string) (func(context.Context) error, bool, error) {
	token := uuid.NewString()
	key := Key(slot)

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire sweep lock %q: %w", slot, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, true, nil
}
