package cache

import (
	"context"
	"time"

	pkgcache "ForecastArena/pkg/cache"
)

// BytesCache is a minimal cache API storing raw bytes with TTL.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Key builds a namespaced cache key for report artifacts, versioned by
// benchmark id so a new run never serves a stale leaderboard.
func Key(kind, benchmarkID, suffix string) string {
	return pkgcache.GenerateKeyWithParams("arena", kind, benchmarkID, suffix)
}
