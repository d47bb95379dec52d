package forecast

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"go-sales-insights/internal/model"
)

// Cache memoises model output keyed by Key.
type Cache interface {
	Get(ctx context.Context, key string) ([]model.ForecastPoint, bool, error)
	Set(ctx context.Context, key string, points []model.ForecastPoint) error
}

// Key fingerprints a history and horizon. Equal inputs give equal keys.
func Key(history []Observation, periods int) string {
	h := sha256.New()
	for _, o := range history {
		fmt.Fprintf(h, "%s=%g;", o.Date.Format("2006-01-02"), o.Value)
	}
	fmt.Fprintf(h, "periods=%d", periods)
	return "forecast:" + hex.EncodeToString(h.Sum(nil))
}

// ------------------- In-memory -------------------

// MemoryCache keeps up to maxEntries results, evicting the oldest insert.
type MemoryCache struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string][]model.ForecastPoint
	order      []string
}

// NewMemoryCache returns an empty cache. maxEntries <= 0 means 64.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 64
	}
	return &MemoryCache{maxEntries: maxEntries, entries: make(map[string][]model.ForecastPoint)}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]model.ForecastPoint, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pts, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]model.ForecastPoint(nil), pts...), true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, points []model.ForecastPoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = append([]model.ForecastPoint(nil), points...)
	for len(c.order) > c.maxEntries {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
	return nil
}

// Len reports how many results are held.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// ------------------- Redis -------------------

// RedisCache stores results as JSON strings with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects using a redis:// URL.
func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "invalid REDIS_URL")
	}
	return &RedisCache{client: redis.NewClient(opts), ttl: ttl}, nil
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return eris.Wrap(c.client.Ping(ctx).Err(), "redis ping failed")
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]model.ForecastPoint, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "redis get %s", key)
	}
	var pts []model.ForecastPoint
	if err := json.Unmarshal(raw, &pts); err != nil {
		return nil, false, eris.Wrap(err, "corrupt cached forecast")
	}
	return pts, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, points []model.ForecastPoint) error {
	raw, err := json.Marshal(points)
	if err != nil {
		return eris.Wrap(err, "failed to encode forecast")
	}
	return eris.Wrapf(c.client.Set(ctx, key, raw, c.ttl).Err(), "redis set %s", key)
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
