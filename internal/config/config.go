package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flybeeper/flightlog-engine/internal/detector"
)

// Бэкенды кэша запросов
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendNone   = "none"
)

// Config содержит конфигурацию приложения
type Config struct {
	Environment string           `yaml:"environment"`
	Logging     LoggingConfig    `yaml:"logging"`
	Cache       CacheConfig      `yaml:"cache"`
	Redis       RedisConfig      `yaml:"redis"`
	Monitoring  MonitoringConfig `yaml:"monitoring"`
	Detection   detector.Config  `yaml:"detection"`
}

// LoggingConfig конфигурация логирования
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CacheConfig конфигурация кэша результатов запросов
type CacheConfig struct {
	Backend  string        `yaml:"backend"`
	Capacity int           `yaml:"capacity"`
	TTL      time.Duration `yaml:"ttl"`
}

// RedisConfig конфигурация Redis
type RedisConfig struct {
	URL          string `yaml:"url"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	PoolSize     int    `yaml:"pool_size"`
	MinIdleConns int    `yaml:"min_idle_conns"`
	KeyPrefix    string `yaml:"key_prefix"`
}

// MonitoringConfig конфигурация мониторинга
type MonitoringConfig struct {
	MetricsEnabled bool   `yaml:"metrics_enabled"`
	MetricsFile    string `yaml:"metrics_file"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Cache: CacheConfig{
			Backend:  CacheBackendMemory,
			Capacity: 1000,
			TTL:      10 * time.Minute,
		},
		Redis: RedisConfig{
			URL:          "redis://localhost:6379",
			DB:           0,
			PoolSize:     10,
			MinIdleConns: 2,
			KeyPrefix:    "flightlog:",
		},
		Monitoring: MonitoringConfig{
			MetricsEnabled: true,
		},
		Detection: *detector.DefaultConfig(),
	}
}

// Load загружает конфигурацию: значения по умолчанию, затем YAML файл (если задан),
// затем переменные окружения
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromEnv() {
	c.Environment = getEnv("ENVIRONMENT", c.Environment)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)

	c.Cache.Backend = getEnv("CACHE_BACKEND", c.Cache.Backend)
	c.Cache.Capacity = getInt("CACHE_CAPACITY", c.Cache.Capacity)
	c.Cache.TTL = getDuration("CACHE_TTL", c.Cache.TTL)

	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getInt("REDIS_DB", c.Redis.DB)
	c.Redis.PoolSize = getInt("REDIS_POOL_SIZE", c.Redis.PoolSize)
	c.Redis.MinIdleConns = getInt("REDIS_MIN_IDLE_CONNS", c.Redis.MinIdleConns)
	c.Redis.KeyPrefix = getEnv("REDIS_KEY_PREFIX", c.Redis.KeyPrefix)

	c.Monitoring.MetricsEnabled = getBool("METRICS_ENABLED", c.Monitoring.MetricsEnabled)
	c.Monitoring.MetricsFile = getEnv("METRICS_FILE", c.Monitoring.MetricsFile)
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, fatal")
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("LOG_FORMAT must be 'json' or 'text'")
	}

	switch c.Cache.Backend {
	case CacheBackendMemory:
		if c.Cache.Capacity <= 0 {
			return fmt.Errorf("CACHE_CAPACITY must be positive")
		}
	case CacheBackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis cache backend")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("REDIS_POOL_SIZE must be positive")
		}
	case CacheBackendNone:
	default:
		return fmt.Errorf("CACHE_BACKEND must be 'memory', 'redis' or 'none', got %q", c.Cache.Backend)
	}

	if c.Cache.Backend != CacheBackendNone && c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}

	if err := c.Detection.Validate(); err != nil {
		return fmt.Errorf("detection: %w", err)
	}

	return nil
}

// Helper функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
