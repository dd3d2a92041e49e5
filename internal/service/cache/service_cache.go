package cache

import (
	"context"
	"errors"
	"time"

	pkgcache "ForecastArena/pkg/cache"
)

// ServiceCache adapts the generic cache.Service to the BytesCache API the
// report layer wants. Backed by Redis when configured, by the in-process
// memory cache otherwise.
type ServiceCache struct {
	svc pkgcache.Service
}

func NewServiceCache(svc pkgcache.Service) *ServiceCache {
	return &ServiceCache{svc: svc}
}

func (c *ServiceCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	var s string
	if err := c.svc.Get(ctx, key, &s); err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(s), true, nil
}

func (c *ServiceCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.svc.Set(ctx, key, string(value), ttl)
}

func (c *ServiceCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.svc.Delete(ctx, keys...)
}

var _ BytesCache = (*ServiceCache)(nil)
