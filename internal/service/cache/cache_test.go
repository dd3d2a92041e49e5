package cache

import (
	"context"
	"testing"
	"time"

	pkgcache "ForecastArena/pkg/cache"
)

func TestKeyNamespacesByBenchmark(t *testing.T) {
	got := Key("leaderboard", "bench-7", "1h")
	if got != "arena:leaderboard:bench-7:1h" {
		t.Fatalf("key = %q", got)
	}
	if Key("leaderboard", "bench-8", "1h") == got {
		t.Fatalf("keys for different benchmarks must differ")
	}
}

func TestServiceCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewServiceCache(pkgcache.NewMemoryCache())

	key := Key("ensemble", "bench-7", "15m")
	if _, ok, err := c.GetBytes(ctx, key); err != nil || ok {
		t.Fatalf("cold cache must miss cleanly, ok=%v err=%v", ok, err)
	}
	if err := c.SetBytes(ctx, key, []byte(`{"rounds":3}`), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	b, ok, err := c.GetBytes(ctx, key)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(b) != `{"rounds":3}` {
		t.Fatalf("payload = %q", b)
	}
	if err := c.Invalidate(ctx, key); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := c.GetBytes(ctx, key); ok {
		t.Fatalf("invalidated key must miss")
	}
}
