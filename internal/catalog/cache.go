package catalog

import (
	"context"
	"time"

	"lanepos/backend/internal/domain"
)

type ProductCache interface {
	Get(ctx context.Context, key string) (*domain.Product, bool, error)
	Set(ctx context.Context, key string, value *domain.Product, ttl time.Duration) error
}

type NoopProductCache struct{}

func (NoopProductCache) Get(_ context.Context, _ string) (*domain.Product, bool, error) {
	return nil, false, nil
}

func (NoopProductCache) Set(_ context.Context, _ string, _ *domain.Product, _ time.Duration) error {
	return nil
}

// CachedGateway is a read-through cache in front of a Gateway. Stock figures
// go stale quickly, so the TTL is short; a cache error degrades to a direct
// lookup rather than failing the scan.
type CachedGateway struct {
	next  Gateway
	cache ProductCache
	ttl   time.Duration
}

func NewCachedGateway(next Gateway, cache ProductCache, ttl time.Duration) *CachedGateway {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &CachedGateway{next: next, cache: cache, ttl: ttl}
}

func (g *CachedGateway) LookupByBarcode(ctx context.Context, code string) (*domain.Product, error) {
	if cached, ok, err := g.cache.Get(ctx, "catalog:barcode:"+code); err == nil && ok {
		return cached, nil
	}

	product, err := g.next.LookupByBarcode(ctx, code)
	if err != nil {
		return nil, err
	}
	_ = g.cache.Set(ctx, "catalog:barcode:"+code, product, g.ttl)
	return product, nil
}

func (g *CachedGateway) Search(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	// Search results are not cached: the panel is a low-frequency UI path.
	return g.next.Search(ctx, query, limit)
}
