package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "data/cache", cfg.Data.CacheDir)
	assert.Equal(t, []string{"yahoo", "eastmoney", "sina"}, cfg.Data.Sources)
	assert.Equal(t, 3, cfg.Data.MaxRetries)
	assert.Equal(t, 2, cfg.Data.RetryDelaySeconds)
	assert.Equal(t, 1000000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, 14, cfg.Strategy.RSIPeriod)
	assert.Equal(t, 30.0, cfg.Strategy.RSIOversold)
	assert.Equal(t, 70.0, cfg.Strategy.RSIOverbought)
	assert.Equal(t, 12, cfg.Strategy.MACDFast)
	assert.Equal(t, 26, cfg.Strategy.MACDSlow)
	assert.Equal(t, 20, cfg.Strategy.BBPeriod)
	assert.Equal(t, 2.0, cfg.Strategy.BBStd)
}

func TestLoadOverridesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data:
  cache_dir: /tmp/hkq
  sources: [eastmoney]
backtest:
  start_date: "2022-06-01"
  initial_capital: 500000
strategy:
  rsi_period: 10
`), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/hkq", cfg.Data.CacheDir)
	assert.Equal(t, []string{"eastmoney"}, cfg.Data.Sources)
	assert.Equal(t, "2022-06-01", cfg.Backtest.StartDate)
	assert.Equal(t, 500000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, 10, cfg.Strategy.RSIPeriod)
	// 未覆盖的项仍是默认值
	assert.Equal(t, 26, cfg.Strategy.MACDSlow)
}

func TestLoadRejectsUnknownSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data:\n  sources: [tushare]\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsBadDates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backtest:\n  start_date: 01/02/2023\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestStrategyConfigValidate(t *testing.T) {
	valid := StrategyConfig{
		RSIPeriod: 14, RSIOversold: 30, RSIOverbought: 70,
		MACDFast: 12, MACDSlow: 26, MACDSignal: 9,
		BBPeriod: 20, BBStd: 2, KDJPeriod: 9, KDJSmoothK: 3, KDJSmoothD: 3,
	}
	require.NoError(t, valid.Validate())

	bad := valid
	bad.RSIOverbought = 20 // <= oversold
	assert.Error(t, bad.Validate())

	bad = valid
	bad.MACDFast = 30 // >= slow
	assert.Error(t, bad.Validate())

	bad = valid
	bad.BBPeriod = 0
	assert.Error(t, bad.Validate())
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("HKQUANT_AI_API_KEY", "sk-test-key")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sk-test-key", cfg.AI.APIKey)
}

func TestStockPoolDefaults(t *testing.T) {
	pool, err := LoadStockPool("")
	require.NoError(t, err)
	assert.Contains(t, pool.Stocks, "0700.HK")
	assert.True(t, pool.IsIndex("HSI.HK"))
	assert.False(t, pool.IsIndex("0700.HK"))
	assert.Equal(t, "腾讯控股", pool.Name("0700.HK"))
	assert.Equal(t, "XXXX.HK", pool.Name("XXXX.HK"))

	symbols := pool.Symbols()
	require.NotEmpty(t, symbols)
	for i := 1; i < len(symbols); i++ {
		assert.Less(t, symbols[i-1], symbols[i], "Symbols 必须有序")
	}
}

func TestStockPoolFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
stocks:
  0005.HK: 汇丰控股
indexes:
  HSI.HK: 恒生指数
`), 0o644))
	pool, err := LoadStockPool(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"0005.HK"}, pool.Symbols())
	assert.Equal(t, "汇丰控股", pool.Name("0005.HK"))
}
