package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.Storage != StorageMemory || cfg.CacheTTL != 30*time.Second || cfg.CachePrefix != "ob:" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	limits, _ := cfg.Limits(context.Background())
	if !limits.MinQuantity.Equal(decimal.RequireFromString("0.0001")) {
		t.Fatalf("min quantity = %s", limits.MinQuantity)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("EXCHANGE_STORAGE", "sqlite")
	t.Setenv("EXCHANGE_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("EXCHANGE_MAX_ORDER_NOTIONAL", "2500.50")
	t.Setenv("EXCHANGE_RATE_LIMIT", "2s")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage != StorageSQLite || len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if !cfg.MaxOrderNotional.Equal(decimal.RequireFromString("2500.5")) || cfg.RateLimit != 2*time.Second {
		t.Fatalf("limits = %s, %s", cfg.MaxOrderNotional, cfg.RateLimit)
	}
}

func TestDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("EXCHANGE_HTTP_ADDR=:9999\nEXCHANGE_DEFAULT_ASSET=GEM\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EXCHANGE_HTTP_ADDR", ":7000")
	t.Setenv("EXCHANGE_DEFAULT_ASSET", "")
	os.Unsetenv("EXCHANGE_DEFAULT_ASSET")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":7000" {
		t.Fatalf("http addr = %s, want the environment value", cfg.HTTPAddr)
	}
	if cfg.DefaultAsset != "GEM" {
		t.Fatalf("default asset = %q, want the file value", cfg.DefaultAsset)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"memory", Config{Storage: StorageMemory}, true},
		{"postgres without dsn", Config{Storage: StoragePostgres}, false},
		{"postgres", Config{Storage: StoragePostgres, PostgresDSN: "postgres://x"}, true},
		{"unknown", Config{Storage: "mongo"}, false},
		{"negative limit", Config{Storage: StorageMemory, MinQuantity: decimal.NewFromInt(-1)}, false},
		{"negative cache ttl", Config{Storage: StorageMemory, CacheTTL: -time.Second}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err == nil) != tt.ok {
				t.Fatalf("validate = %v, ok = %v", err, tt.ok)
			}
		})
	}
}
