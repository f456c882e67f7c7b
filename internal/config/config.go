// Package config loads the exchange server settings from the environment.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/olyamironova/game-exchange/internal/domain"
	"github.com/olyamironova/game-exchange/internal/port"
	"github.com/shopspring/decimal"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

type Config struct {
	HTTPAddr string `env:"EXCHANGE_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"EXCHANGE_GRPC_ADDR" envDefault:":50051"`

	Storage     string `env:"EXCHANGE_STORAGE"       envDefault:"memory"`
	PostgresDSN string `env:"EXCHANGE_POSTGRES_DSN"`
	SQLitePath  string `env:"EXCHANGE_SQLITE_PATH"   envDefault:"exchange.db"`

	RedisAddr     string        `env:"EXCHANGE_REDIS_ADDR"`
	RedisPassword string        `env:"EXCHANGE_REDIS_PASSWORD"`
	RedisDB       int           `env:"EXCHANGE_REDIS_DB"       envDefault:"0"`
	CacheTTL      time.Duration `env:"EXCHANGE_CACHE_TTL"      envDefault:"30s"`
	CachePrefix   string        `env:"EXCHANGE_CACHE_PREFIX"   envDefault:"ob:"`

	KafkaBrokers  []string `env:"EXCHANGE_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic    string   `env:"EXCHANGE_KAFKA_TOPIC"    envDefault:"exchange.events"`
	EventsChannel string   `env:"EXCHANGE_EVENTS_CHANNEL" envDefault:"exchange:events:"`

	DefaultAsset     string          `env:"EXCHANGE_DEFAULT_ASSET"`
	MaxOrderNotional decimal.Decimal `env:"EXCHANGE_MAX_ORDER_NOTIONAL" envDefault:"1000000000"`
	MinQuantity      decimal.Decimal `env:"EXCHANGE_MIN_QUANTITY"       envDefault:"0.0001"`

	RateLimit time.Duration `env:"EXCHANGE_RATE_LIMIT" envDefault:"100ms"`
	LogLevel  string        `env:"EXCHANGE_LOG_LEVEL"  envDefault:"info"`
}

var _ port.LimitsProvider = Config{}

// Load reads envPath (or ./.env when empty) if it exists, then parses the
// environment. Real environment variables win over the file.
func Load(envPath string) (Config, error) {
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage {
	case StorageMemory, StorageSQLite:
	case StoragePostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("EXCHANGE_POSTGRES_DSN is required for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache ttl must not be negative")
	}
	if c.MaxOrderNotional.IsNegative() || c.MinQuantity.IsNegative() {
		return fmt.Errorf("order limits must not be negative")
	}
	return nil
}

// Limits makes the static configuration a port.LimitsProvider.
func (c Config) Limits(context.Context) (domain.Limits, error) {
	return domain.Limits{
		MaxOrderNotional: c.MaxOrderNotional,
		MinQuantity:      c.MinQuantity,
	}, nil
}
