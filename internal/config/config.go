// Package config defines the top-level configuration for the pool engine
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/holiman/uint256"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by POOLENGINE_* environment
// variables.
type Config struct {
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Archive  ArchiveConfig  `toml:"archive"`
	Engine   EngineConfig   `toml:"engine"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	LogLevel string         `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`

	// CacheTTLSeconds bounds staleness of the pool-state read cache.
	CacheTTLSeconds int `toml:"cache_ttl_seconds"`
	// LockTTLSeconds bounds how long a settlement may hold a market lock.
	LockTTLSeconds int `toml:"lock_ttl_seconds"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls the ledger archiver.
type ArchiveConfig struct {
	Enabled       bool `toml:"enabled"`
	IntervalHours int  `toml:"interval_hours"`
	RetentionDays int  `toml:"retention_days"`
}

// EngineConfig holds the pricing parameters. They are read once at startup
// and frozen into the engine.
type EngineConfig struct {
	PricingModel          string `toml:"pricing_model"`
	TradingFeeBps         uint64 `toml:"trading_fee_bps"`
	SlippageProtectionBps uint64 `toml:"slippage_protection_bps"`
	// MaxLiquidityCap is a decimal string; empty disables the cap.
	MaxLiquidityCap   string `toml:"max_liquidity_cap"`
	RequireSignatures bool   `toml:"require_signatures"`
}

// ServerConfig holds the HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds operator alert channels.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns the built-in configuration, suitable for local
// development against docker-compose services.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "poolengine",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:            "localhost:6379",
			PoolSize:        10,
			MaxRetries:      3,
			CacheTTLSeconds: 30,
			LockTTLSeconds:  5,
		},
		Archive: ArchiveConfig{
			IntervalHours: 24,
			RetentionDays: 30,
		},
		Engine: EngineConfig{
			PricingModel:          "CPMM",
			TradingFeeBps:         20,
			SlippageProtectionBps: 200,
			RequireSignatures:     true,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for inconsistencies. It returns the
// first problem found.
func (c *Config) Validate() error {
	if c.Postgres.DSN == "" && c.Postgres.Host == "" {
		return fmt.Errorf("config: postgres dsn or host is required")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis addr is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server port %d out of range", c.Server.Port)
	}
	if c.Engine.TradingFeeBps >= 10000 {
		return fmt.Errorf("config: trading_fee_bps %d must be below 10000", c.Engine.TradingFeeBps)
	}
	if c.Engine.SlippageProtectionBps > 10000 {
		return fmt.Errorf("config: slippage_protection_bps %d must be at most 10000", c.Engine.SlippageProtectionBps)
	}
	if c.Engine.MaxLiquidityCap != "" {
		if _, err := c.LiquidityCap(); err != nil {
			return err
		}
	}
	if c.Archive.Enabled {
		if c.S3.Bucket == "" || c.S3.Region == "" {
			return fmt.Errorf("config: archive requires s3 bucket and region")
		}
		if c.Archive.IntervalHours <= 0 {
			return fmt.Errorf("config: archive interval_hours must be positive")
		}
		if c.Archive.RetentionDays <= 0 {
			return fmt.Errorf("config: archive retention_days must be positive")
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	return nil
}

// LiquidityCap parses the configured cap, or returns nil when unset.
func (c *Config) LiquidityCap() (*uint256.Int, error) {
	if c.Engine.MaxLiquidityCap == "" {
		return nil, nil
	}
	v, err := uint256.FromDecimal(c.Engine.MaxLiquidityCap)
	if err != nil {
		return nil, fmt.Errorf("config: max_liquidity_cap %q: %w", c.Engine.MaxLiquidityCap, err)
	}
	return v, nil
}

// CacheTTL returns the pool cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}

// LockTTL returns the market lock TTL as a duration.
func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.Redis.LockTTLSeconds) * time.Second
}

// ArchiveInterval returns the archive cycle period.
func (c *Config) ArchiveInterval() time.Duration {
	return time.Duration(c.Archive.IntervalHours) * time.Hour
}

// ArchiveRetention returns how long trades stay in the primary store.
func (c *Config) ArchiveRetention() time.Duration {
	return time.Duration(c.Archive.RetentionDays) * 24 * time.Hour
}
