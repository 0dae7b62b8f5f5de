// internal/workers/dashboard/build-dashboard/cache.go
package builddashboard

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"childcare-registration/internal/common/metrics"
	"childcare-registration/internal/models"

	"github.com/redis/go-redis/v9"
)

// Cache keeps the unfiltered dashboard in Redis for a short TTL.
type Cache struct {
	rdb redis.Cmdable
	key string
	ttl time.Duration
}

func NewCache(rdb redis.Cmdable, key string, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, key: key, ttl: ttl}
}

// Get returns (nil, nil) on a miss.
func (c *Cache) Get(ctx context.Context) (*models.Dashboard, error) {
	val, err := c.rdb.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.DashboardCacheRequests.WithLabelValues("miss").Inc()
		return nil, nil
	}
	if err != nil {
		metrics.DashboardCacheRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	var dash models.Dashboard
	if err := json.Unmarshal(val, &dash); err != nil {
		metrics.DashboardCacheRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.DashboardCacheRequests.WithLabelValues("hit").Inc()
	return &dash, nil
}

func (c *Cache) Set(ctx context.Context, dash *models.Dashboard) error {
	data, err := json.Marshal(dash)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key, data, c.ttl).Err()
}

func (c *Cache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, c.key).Err()
}

func (c *Cache) Name() string {
	return "dashboard-cache"
}

// AfterSubmit drops the cached dashboard so the new submission shows up.
func (c *Cache) AfterSubmit(ctx context.Context, _ *models.Aggregate) error {
	return c.Invalidate(ctx)
}
