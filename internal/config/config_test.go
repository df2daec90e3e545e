package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Equal(t, "sqlite", cfg.StoreDriver)
	require.Equal(t, "data/telemetry.db", cfg.SQLitePath)
	require.Equal(t, time.Hour, cfg.TokenTTL)
	require.False(t, cfg.RequireDeviceAuth)
	require.Equal(t, 100, cfg.HistoryDefaultLimit)
	require.Equal(t, 1000, cfg.HistoryMaxLimit)
	require.Empty(t, cfg.MQTTBrokerURL)
	require.Equal(t, "telemetry", cfg.MQTTTopicPrefix)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDRESS", ":9090")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("TOKEN_TTL", "15m")
	t.Setenv("REQUIRE_DEVICE_AUTH", "true")
	t.Setenv("HISTORY_DEFAULT_LIMIT", "50")
	t.Setenv("MQTT_BROKER_URL", "tcp://broker:1883")

	cfg := Load()

	require.Equal(t, ":9090", cfg.HTTPAddress)
	require.Equal(t, "postgres", cfg.StoreDriver)
	require.Equal(t, 15*time.Minute, cfg.TokenTTL)
	require.True(t, cfg.RequireDeviceAuth)
	require.Equal(t, 50, cfg.HistoryDefaultLimit)
	require.Equal(t, "tcp://broker:1883", cfg.MQTTBrokerURL)
}

func TestLoadIgnoresUnparsableValues(t *testing.T) {
	t.Setenv("TOKEN_TTL", "soon")
	t.Setenv("HISTORY_MAX_LIMIT", "lots")
	t.Setenv("REQUIRE_DEVICE_AUTH", "yep")

	cfg := Load()

	require.Equal(t, time.Hour, cfg.TokenTTL)
	require.Equal(t, 1000, cfg.HistoryMaxLimit)
	require.False(t, cfg.RequireDeviceAuth)
}
