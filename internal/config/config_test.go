package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, uint64(20), cfg.Engine.TradingFeeBps)
	assert.Equal(t, "CPMM", cfg.Engine.PricingModel)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL())
	assert.Equal(t, 5*time.Second, cfg.LockTTL())
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"

[engine]
trading_fee_bps = 50
max_liquidity_cap = "1000000000"

[server]
port = 9090
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, uint64(50), cfg.Engine.TradingFeeBps)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	liquidityCap, err := cfg.LiquidityCap()
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(1000000000), liquidityCap)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := writeConfig(t, `
[redis]
addr = "file:6379"
`)

	t.Setenv("POOLENGINE_REDIS_ADDR", "env:6379")
	t.Setenv("POOLENGINE_ENGINE_TRADING_FEE_BPS", "35")
	t.Setenv("POOLENGINE_NOTIFY_EVENTS", "pool_created, shares_bought")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env:6379", cfg.Redis.Addr)
	assert.Equal(t, uint64(35), cfg.Engine.TradingFeeBps)
	assert.Equal(t, []string{"pool_created", "shares_bought"}, cfg.Notify.Events)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Engine.TradingFeeBps = 10000
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Engine.MaxLiquidityCap = "not-a-number"
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.LogLevel = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Archive.Enabled = true
	assert.Error(t, cfg.Validate(), "archive needs s3 settings")

	cfg = Defaults()
	cfg.Redis.Addr = ""
	assert.Error(t, cfg.Validate())
}

func TestLiquidityCapUnsetIsNil(t *testing.T) {
	cfg := Defaults()
	liquidityCap, err := cfg.LiquidityCap()
	require.NoError(t, err)
	assert.Nil(t, liquidityCap)
}
