package cache

import (
	"context"
	"fmt"

	"github.com/flybeeper/flightlog-engine/internal/config"
	"github.com/flybeeper/flightlog-engine/pkg/utils"
)

// Cache хранилище сериализованных результатов запросов, принадлежащее вызывающей стороне
type Cache interface {
	// Get возвращает значение и признак наличия
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set сохраняет значение с TTL бэкенда
	Set(ctx context.Context, key string, value []byte) error

	// Delete удаляет ключ
	Delete(ctx context.Context, key string) error

	// Close освобождает ресурсы
	Close() error
}

// New создает кэш по конфигурации. Для бэкенда "none" возвращает nil без ошибки.
func New(ctx context.Context, cfg *config.Config, logger *utils.Logger) (Cache, error) {
	logger = utils.OrDefault(logger)

	switch cfg.Cache.Backend {
	case config.CacheBackendNone, "":
		logger.Info("Query cache disabled")
		return nil, nil

	case config.CacheBackendMemory:
		logger.WithField("capacity", cfg.Cache.Capacity).
			WithField("ttl", cfg.Cache.TTL.String()).
			Info("Using in-memory query cache")
		return NewMemoryCache(cfg.Cache.Capacity, cfg.Cache.TTL), nil

	case config.CacheBackendRedis:
		c, err := NewRedisCache(&cfg.Redis, cfg.Cache.TTL, logger)
		if err != nil {
			return nil, err
		}
		if err := c.Ping(ctx); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to connect to redis cache: %w", err)
		}
		logger.WithField("prefix", cfg.Redis.KeyPrefix).Info("Using Redis query cache")
		return c, nil

	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
