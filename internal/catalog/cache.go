package catalog

import (
	"context"
	"encoding/json"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const productCacheKey = "catalog:products"

// Cache keeps the upstream product list in Redis with a TTL so filter
// re-evaluation on every keystroke does not refetch the catalog.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCache creates a product cache on an existing Redis client.
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{
		rdb:    rdb,
		ttl:    ttl,
		logger: util.GetLogger(),
	}
}

// Get returns the cached product list, or nil and false on a miss. Cache
// errors count as misses; the caller falls through to the upstream fetch.
func (c *Cache) Get(ctx context.Context) ([]models.Product, bool) {
	data, err := c.rdb.Get(ctx, productCacheKey).Bytes()
	if err == redis.Nil {
		util.CatalogCacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		c.logger.Warn("Product cache read failed", zap.Error(err))
		util.CatalogCacheHits.WithLabelValues("error").Inc()
		return nil, false
	}

	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		c.logger.Warn("Corrupt product cache entry", zap.Error(err))
		util.CatalogCacheHits.WithLabelValues("error").Inc()
		return nil, false
	}

	util.CatalogCacheHits.WithLabelValues("hit").Inc()
	return products, true
}

// Set stores the product list. Failures are logged and ignored; the cache is
// an optimization, not a source of truth.
func (c *Cache) Set(ctx context.Context, products []models.Product) {
	data, err := json.Marshal(products)
	if err != nil {
		c.logger.Error("Failed to marshal products for cache", zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, productCacheKey, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Product cache write failed", zap.Error(err))
	}
}

// Invalidate drops the cached product list.
func (c *Cache) Invalidate(ctx context.Context) {
	if err := c.rdb.Del(ctx, productCacheKey).Err(); err != nil {
		c.logger.Warn("Product cache invalidation failed", zap.Error(err))
	}
}
