// Package config defines the risk engine configuration and its loading order.
package config

import (
	"errors"
	"time"
)

// Config is the process configuration.
type Config struct {
	RPC     RPCConfig     `koanf:"rpc"`
	Market  MarketConfig  `koanf:"market"`
	Storage StorageConfig `koanf:"storage"`
	Cache   CacheConfig   `koanf:"cache"`
	HTTP    HTTPConfig    `koanf:"http"`
	Log     LogConfig     `koanf:"log"`
	Tracing TracingConfig `koanf:"tracing"`
}

// RPCConfig points at a Solana JSON-RPC node.
type RPCConfig struct {
	Endpoint   string        `koanf:"endpoint"`
	WSEndpoint string        `koanf:"ws_endpoint"` // optional slot subscription
	Timeout    time.Duration `koanf:"timeout"`
	MaxRetries int           `koanf:"max_retries"`
}

// MarketConfig points at the market data API.
type MarketConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// StorageConfig selects the reputation store backend.
type StorageConfig struct {
	PostgresDSN   string `koanf:"postgres_dsn"`
	ClickhouseDSN string `koanf:"clickhouse_dsn"`
	UseMemory     bool   `koanf:"use_memory"`
}

// CacheConfig holds cache lifetimes.
type CacheConfig struct {
	AssessmentTTL time.Duration `koanf:"assessment_ttl"`
	PriceTTL      time.Duration `koanf:"price_ttl"`
	CreatorTTL    time.Duration `koanf:"creator_ttl"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or text
}

type TracingConfig struct {
	OTLPEndpoint string `koanf:"otlp_endpoint"` // empty disables export
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		RPC: RPCConfig{
			Endpoint: "https://api.mainnet-beta.solana.com",
			Timeout:  15 * time.Second,
		},
		Market: MarketConfig{
			BaseURL: "https://api.dexscreener.com",
			Timeout: 10 * time.Second,
		},
		Storage: StorageConfig{UseMemory: true},
		Cache: CacheConfig{
			AssessmentTTL: 5 * time.Minute,
			PriceTTL:      30 * time.Second,
			CreatorTTL:    6 * time.Hour,
		},
		HTTP:    HTTPConfig{Addr: ":8080"},
		Log:     LogConfig{Level: "info", Format: "json"},
		Tracing: TracingConfig{},
	}
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.RPC.Endpoint == "" {
		return errors.New("rpc.endpoint is required")
	}
	if c.Market.BaseURL == "" {
		return errors.New("market.base_url is required")
	}
	if c.RPC.MaxRetries < 0 {
		return errors.New("rpc.max_retries must not be negative")
	}
	if !c.Storage.UseMemory && (c.Storage.PostgresDSN == "" || c.Storage.ClickhouseDSN == "") {
		return errors.New("storage.postgres_dsn and storage.clickhouse_dsn are required unless storage.use_memory is set")
	}
	if c.Cache.AssessmentTTL < 0 || c.Cache.PriceTTL < 0 || c.Cache.CreatorTTL < 0 {
		return errors.New("cache TTLs must not be negative")
	}
	return nil
}
