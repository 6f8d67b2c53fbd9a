package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flybeeper/flightlog-engine/internal/config"
	"github.com/flybeeper/flightlog-engine/internal/metrics"
	"github.com/flybeeper/flightlog-engine/pkg/utils"
)

const redisBackend = "redis"

// RedisCache кэш результатов запросов в Redis
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *utils.Logger
}

// NewRedisCache создает Redis кэш
func NewRedisCache(cfg *config.RedisConfig, ttl time.Duration, logger *utils.Logger) (*RedisCache, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}

	// Парсим Redis URL
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if cfg.Password != "" {
		opt.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opt.DB = cfg.DB
	}
	opt.PoolSize = cfg.PoolSize
	opt.MinIdleConns = cfg.MinIdleConns
	opt.ConnMaxIdleTime = 30 * time.Minute
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	return &RedisCache{
		client: redis.NewClient(opt),
		prefix: cfg.KeyPrefix,
		ttl:    ttl,
		logger: utils.OrDefault(logger),
	}, nil
}

// Ping проверяет соединение с Redis
func (c *RedisCache) Ping(ctx context.Context) error {
	if _, err := c.client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Get возвращает значение по ключу
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	defer observe("get", start)

	value, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMisses.WithLabelValues(redisBackend).Inc()
		return nil, false, nil
	}
	if err != nil {
		metrics.CacheErrors.WithLabelValues(redisBackend, "get").Inc()
		return nil, false, fmt.Errorf("failed to get cache key %s: %w", key, err)
	}

	metrics.CacheHits.WithLabelValues(redisBackend).Inc()
	return value, true, nil
}

// Set сохраняет значение с TTL
func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	defer observe("set", start)

	if err := c.client.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		metrics.CacheErrors.WithLabelValues(redisBackend, "set").Inc()
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}
	return nil
}

// Delete удаляет ключ
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	start := time.Now()
	defer observe("delete", start)

	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		metrics.CacheErrors.WithLabelValues(redisBackend, "delete").Inc()
		return fmt.Errorf("failed to delete cache key %s: %w", key, err)
	}
	return nil
}

// Close закрывает соединение с Redis
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func observe(operation string, start time.Time) {
	metrics.CacheOperationDuration.WithLabelValues(redisBackend, operation).Observe(time.Since(start).Seconds())
}
