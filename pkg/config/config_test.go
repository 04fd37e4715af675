package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, ModeAPI, c.Upstream.Mode)
	assert.Equal(t, 30*time.Second, c.Polling.Interval)
	assert.Equal(t, []string{"XAUUSD"}, c.Polling.FreePairs)
	assert.Equal(t, 10*time.Second, c.Upstream.Timeout)
	assert.Equal(t, 8080, c.Server.Port)
	assert.False(t, c.Kafka.Enabled)
}

func TestParseOverridesDefaults(t *testing.T) {
	doc := `
environment: prod
upstream:
  mode: webhook
  webhook:
    strategy_url: https://hooks.example/strategy
polling:
  interval: 5s
  free_pairs: [XAUUSD, EURUSD]
`
	c, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, ModeWebhook, c.Upstream.Mode)
	assert.Equal(t, "https://hooks.example/strategy", c.Upstream.Webhook.StrategyURL)
	assert.Equal(t, 5*time.Second, c.Polling.Interval)
	assert.Equal(t, []string{"XAUUSD", "EURUSD"}, c.Polling.FreePairs)
}

func TestParseRejectsUnknownMode(t *testing.T) {
	_, err := Parse([]byte("upstream:\n  mode: grpc\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream.mode")
}

func TestApplyEnv(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	env := map[string]string{
		"UPSTREAM_MODE":     "WEBHOOK",
		"FREE_PAIRS":        "XAUUSD, BTCUSD",
		"KAFKA_BROKERS":     "k1:9092,k2:9092",
		"REDIS_HOST":        "cache",
		"UPSTREAM_BASE_URL": "https://api.example",
	}
	c.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, ModeWebhook, c.Upstream.Mode)
	assert.Equal(t, []string{"XAUUSD", "BTCUSD"}, c.Polling.FreePairs)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Cache.Redis.Enabled)
	assert.Equal(t, "cache", c.Cache.Redis.Host)
	assert.Equal(t, "https://api.example", c.Upstream.BaseURL)
	require.NoError(t, c.Validate())
}

func TestLowerCaseFreePairsAreNormalized(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	env := map[string]string{"FREE_PAIRS": "xauusd, eurUsd,,"}
	c.ApplyEnv(func(k string) string { return env[k] })
	c.Normalize()

	assert.Equal(t, []string{"XAUUSD", "EURUSD"}, c.Polling.FreePairs)
	require.NoError(t, c.Validate())

	c, err = Parse([]byte("polling:\n  free_pairs: [gbpusd]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"GBPUSD"}, c.Polling.FreePairs)
}

func TestValidateKafkaNeedsBrokers(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	c.Kafka.Enabled = true
	require.Error(t, c.Validate())
}
