package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies POOLENGINE_* environment variable overrides,
// and returns the final Config. The result has not been validated; callers
// should invoke Config.Validate after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env if present; missing files are fine.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites Config fields from well-known POOLENGINE_*
// variables so operators can inject secrets without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Postgres.DSN, "POOLENGINE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "POOLENGINE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "POOLENGINE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "POOLENGINE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "POOLENGINE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "POOLENGINE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "POOLENGINE_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "POOLENGINE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "POOLENGINE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "POOLENGINE_POSTGRES_RUN_MIGRATIONS")

	setStr(&cfg.Redis.Addr, "POOLENGINE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POOLENGINE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POOLENGINE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POOLENGINE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POOLENGINE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POOLENGINE_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.CacheTTLSeconds, "POOLENGINE_REDIS_CACHE_TTL_SECONDS")
	setInt(&cfg.Redis.LockTTLSeconds, "POOLENGINE_REDIS_LOCK_TTL_SECONDS")

	setStr(&cfg.S3.Endpoint, "POOLENGINE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "POOLENGINE_S3_REGION")
	setStr(&cfg.S3.Bucket, "POOLENGINE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "POOLENGINE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "POOLENGINE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "POOLENGINE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "POOLENGINE_S3_FORCE_PATH_STYLE")

	setBool(&cfg.Archive.Enabled, "POOLENGINE_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.IntervalHours, "POOLENGINE_ARCHIVE_INTERVAL_HOURS")
	setInt(&cfg.Archive.RetentionDays, "POOLENGINE_ARCHIVE_RETENTION_DAYS")

	setStr(&cfg.Engine.PricingModel, "POOLENGINE_ENGINE_PRICING_MODEL")
	setUint64(&cfg.Engine.TradingFeeBps, "POOLENGINE_ENGINE_TRADING_FEE_BPS")
	setUint64(&cfg.Engine.SlippageProtectionBps, "POOLENGINE_ENGINE_SLIPPAGE_PROTECTION_BPS")
	setStr(&cfg.Engine.MaxLiquidityCap, "POOLENGINE_ENGINE_MAX_LIQUIDITY_CAP")
	setBool(&cfg.Engine.RequireSignatures, "POOLENGINE_ENGINE_REQUIRE_SIGNATURES")

	setInt(&cfg.Server.Port, "POOLENGINE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "POOLENGINE_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "POOLENGINE_SERVER_API_KEY")

	setStr(&cfg.Notify.TelegramToken, "POOLENGINE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "POOLENGINE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "POOLENGINE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "POOLENGINE_NOTIFY_EVENTS")

	setStr(&cfg.LogLevel, "POOLENGINE_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the variable is
// present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			*dst = out
		}
	}
}
