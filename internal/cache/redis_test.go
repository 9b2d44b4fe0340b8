package cache

import (
	"context"
	"testing"
	"time"

	"github.com/uplink-rewards/internal/config"

	"github.com/redis/go-redis/v9"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	if err := InitRedis(&config.RedisConfig{Enabled: false}); err != nil {
		t.Fatalf("init disabled redis failed: %v", err)
	}
	if Enabled() {
		t.Fatalf("cache should be disabled")
	}
	ctx := context.Background()
	if err := SetJSON(ctx, "k", map[string]int{"a": 1}, time.Second); err != nil {
		t.Fatalf("set on disabled cache should be noop: %v", err)
	}
	var out map[string]int
	hit, err := GetJSON(ctx, "k", &out)
	if err != nil || hit {
		t.Fatalf("get on disabled cache: hit=%v err=%v", hit, err)
	}
	if err := Ping(ctx); err != nil {
		t.Fatalf("ping on disabled cache should be noop: %v", err)
	}
}

func TestBuildKeyUsesPrefix(t *testing.T) {
	UseClient(nil, "unit")
	if got := BuildKey(" reward:stats "); got != "unit:reward:stats" {
		t.Fatalf("unexpected key: %s", got)
	}
	if got := BuildKey(""); got != "unit" {
		t.Fatalf("unexpected empty key: %s", got)
	}
}

func TestCloseDisablesCache(t *testing.T) {
	UseClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), "unit")
	if !Enabled() {
		t.Fatalf("cache should be enabled after UseClient")
	}
	if err := Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if Enabled() || Client() != nil {
		t.Fatalf("cache should be disabled after close")
	}
	if err := Del(context.Background(), "a", "b"); err != nil {
		t.Fatalf("del on closed cache should be noop: %v", err)
	}
}
