package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "spot", c.Strategy.Mode)
	assert.Equal(t, "BTCUSDT", c.Strategy.Symbol)
	assert.Equal(t, "0.00015", c.Strategy.Quantity)
	assert.Equal(t, "15m", c.Strategy.Interval)
	assert.Equal(t, 21, c.Strategy.Lookback)
	assert.Equal(t, 10*time.Second, c.Strategy.CheckInterval)
	assert.Equal(t, 3*time.Minute, c.Strategy.Cooldown)
	assert.False(t, c.Strategy.CooldownEntriesOnly)
	assert.Equal(t, 0.99, c.Strategy.BuyThreshold)
	assert.Equal(t, 1.01, c.Strategy.SellThreshold)
	assert.Equal(t, 0.99, c.Strategy.StopLoss)
	assert.Equal(t, 1.03, c.Strategy.TakeProfit)
	assert.Equal(t, "paper", c.Trader.Mode)
	assert.Equal(t, "file", c.Storage.Backend)
	assert.Equal(t, 5000, c.Exchange.RecvWindow)

	upper, lower := c.Strategy.RSIGuards()
	assert.Equal(t, 70.0, upper)
	assert.Equal(t, 30.0, lower)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
strategy:
  mode: futures
  symbol: ETHUSDT
  buy_threshold: 0.995
  take_profit: 1.05
  cooldown: 5m
  cooldown_entries_only: true
server:
  enabled: false
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "futures", c.Strategy.Mode)
	assert.Equal(t, "ETHUSDT", c.Strategy.Symbol)
	assert.Equal(t, 0.995, c.Strategy.BuyThreshold)
	assert.Equal(t, 1.05, c.Strategy.TakeProfit)
	assert.Equal(t, 5*time.Minute, c.Strategy.Cooldown)
	assert.True(t, c.Strategy.CooldownEntriesOnly)
	assert.False(t, c.Server.Enabled)
	assert.Equal(t, 0.99, c.Strategy.StopLoss, "untouched keys keep defaults")

	upper, lower := c.Strategy.RSIGuards()
	assert.Equal(t, 75.0, upper)
	assert.Equal(t, 25.0, lower)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SYMBOL", "solusdt")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DB_MAX_CONNS", "4")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "SOLUSDT", c.Strategy.Symbol)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, int32(4), c.Storage.Postgres.MaxConns)
	assert.Equal(t, int32(2), c.Storage.Postgres.MinConns)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "unknown mode", mutate: func(c *Config) { c.Strategy.Mode = "margin" }},
		{name: "buy threshold above one", mutate: func(c *Config) { c.Strategy.BuyThreshold = 1.2 }},
		{name: "take profit below one", mutate: func(c *Config) { c.Strategy.TakeProfit = 0.9 }},
		{name: "slow ema not slower", mutate: func(c *Config) { c.Strategy.EMASlow = 12 }},
		{name: "bad quantity", mutate: func(c *Config) { c.Strategy.Quantity = "lots" }},
		{name: "live without keys", mutate: func(c *Config) { c.Trader.Mode = "live" }},
		{name: "postgres without url", mutate: func(c *Config) { c.Storage.Backend = "postgres" }},
		{name: "pool min above max", mutate: func(c *Config) { c.Storage.Postgres.MinConns = 20 }},
		{name: "kafka without brokers", mutate: func(c *Config) { c.Kafka.Enabled = true }},
		{name: "telegram without chat", mutate: func(c *Config) { c.Telegram.Token = "x" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Default()
			require.NoError(t, err)
			require.NoError(t, c.Validate())

			tt.mutate(c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
