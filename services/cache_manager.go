package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/yashrajoria/storefront-api/models"
	"go.uber.org/zap"
)

const (
	productCachePrefix     = "product:detail:"
	productListCachePrefix = "products:v:"
	cacheVersionKey        = "products:version"

	defaultCacheTTL = 5 * time.Minute
)

// CacheManager handles Redis caching for the product catalog. Reads
// fall through on any cache error; writes happen asynchronously so the
// request path never waits on Redis.
type CacheManager struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewCacheManager(rdb *redis.Client) *CacheManager {
	return &CacheManager{redis: rdb, ttl: defaultCacheTTL}
}

// GetProduct retrieves a cached product detail.
func (cm *CacheManager) GetProduct(ctx context.Context, id string) (*models.Product, bool) {
	if cm.redis == nil {
		return nil, false
	}
	cached, err := cm.redis.Get(ctx, productCachePrefix+id).Result()
	if err != nil {
		return nil, false
	}
	var p models.Product
	if err := json.Unmarshal([]byte(cached), &p); err != nil {
		zap.L().Warn("failed to unmarshal cached product", zap.Error(err))
		return nil, false
	}
	return &p, true
}

// SetProductAsync caches a product detail in the background.
func (cm *CacheManager) SetProductAsync(p *models.Product) {
	if cm.redis == nil || p == nil {
		return
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		b, err := json.Marshal(p)
		if err != nil {
			return
		}
		if err := cm.redis.Set(bgCtx, productCachePrefix+p.ID.String(), b, cm.ttl).Err(); err != nil {
			zap.L().Warn("failed to cache product", zap.Error(err))
		}
	}()
}

// GetProductList retrieves a cached, versioned product list page.
func (cm *CacheManager) GetProductList(ctx context.Context, page, perPage int, filters models.ProductFilters) (map[string]interface{}, bool) {
	if cm.redis == nil {
		return nil, false
	}
	version, err := cm.redis.Get(ctx, cacheVersionKey).Int64()
	if err != nil || version == 0 {
		return nil, false
	}

	cached, err := cm.redis.Get(ctx, cm.listKey(version, page, perPage, filters)).Result()
	if err != nil {
		return nil, false
	}

	var response map[string]interface{}
	if err := json.Unmarshal([]byte(cached), &response); err != nil {
		zap.L().Warn("failed to unmarshal cached product list", zap.Error(err))
		return nil, false
	}
	return response, true
}

// SetProductListAsync caches a product list page in the background.
func (cm *CacheManager) SetProductListAsync(page, perPage int, filters models.ProductFilters, response map[string]interface{}) {
	if cm.redis == nil {
		return
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		version, err := cm.redis.Get(bgCtx, cacheVersionKey).Int64()
		if err != nil || version == 0 {
			return
		}
		b, err := json.Marshal(response)
		if err != nil {
			return
		}
		if err := cm.redis.Set(bgCtx, cm.listKey(version, page, perPage, filters), b, cm.ttl).Err(); err != nil {
			zap.L().Warn("failed to cache product list", zap.Error(err))
		}
	}()
}

// Invalidate drops the product detail entry and bumps the list version
// so stale list pages stop matching.
func (cm *CacheManager) Invalidate(ctx context.Context, productID string) {
	if cm.redis == nil {
		return
	}
	if err := cm.redis.Del(ctx, productCachePrefix+productID).Err(); err != nil {
		zap.L().Warn("failed to invalidate product cache", zap.Error(err))
	}
	if err := cm.redis.Incr(ctx, cacheVersionKey).Err(); err != nil {
		zap.L().Warn("failed to bump product list cache version", zap.Error(err))
	}
}

func (cm *CacheManager) listKey(version int64, page, perPage int, filters models.ProductFilters) string {
	return fmt.Sprintf("%s%d:page:%d:per:%d:cat:%s:brand:%s",
		productListCachePrefix, version, page, perPage, filters.Category, filters.Brand)
}
