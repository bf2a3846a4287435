package sweeplock_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/dalemusser/groupdigest/internal/app/system/sweeplock"
)

func TestKey(t *testing.T) {
	if got := sweeplock.Key("2024-01-10"); got != "groupdigest:sweep:2024-01-10" {
		t.Errorf("Key: got %q", got)
	}
}

func TestConnect_ParsesURLAndAddr(t *testing.T) {
	ctx := context.Background()

	c, err := sweeplock.Connect(ctx, "redis://:secret@cache.internal:6380/2")
	if err != nil {
		t.Fatalf("Connect(url) failed: %v", err)
	}
	defer c.Close()
	if opt := c.Options(); opt.Addr != "cache.internal:6380" || opt.DB != 2 || opt.Password != "secret" {
		t.Errorf("unexpected options: addr=%q db=%d", opt.Addr, opt.DB)
	}

	c2, err := sweeplock.Connect(ctx, "localhost:6379")
	if err != nil {
		t.Fatalf("Connect(addr) failed: %v", err)
	}
	defer c2.Close()
	if c2.Options().Addr != "localhost:6379" {
		t.Errorf("Addr: got %q", c2.Options().Addr)
	}

	if _, err := sweeplock.Connect(ctx, "redis://bad url"); err == nil {
		t.Error("expected error for malformed url")
	}
}

func TestLock_AcquireRelease(t *testing.T) {
	url := os.Getenv("GROUPDIGEST_TEST_REDIS_URL")
	if url == "" {
		t.Skip("GROUPDIGEST_TEST_REDIS_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := sweeplock.Connect(ctx, url)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}

	slot := "test-" + time.Now().Format("150405.000000000")
	defer client.Del(ctx, sweeplock.Key(slot))

	lock := sweeplock.New(client, time.Minute)

	release, ok, err := lock.Acquire(ctx, slot)
	if err != nil || !ok {
		t.Fatalf("first Acquire: ok=%v err=%v", ok, err)
	}
	if _, ok, err := lock.Acquire(ctx, slot); err != nil || ok {
		t.Fatalf("second Acquire should fail: ok=%v err=%v", ok, err)
	}
	if err := release(ctx); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if _, ok, err := lock.Acquire(ctx, slot); err != nil || !ok {
		t.Fatalf("Acquire after release: ok=%v err=%v", ok, err)
	}
}
