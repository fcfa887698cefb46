package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "3000", cfg.Port)
	assert.False(t, cfg.IsProduction())
	assert.NotEmpty(t, cfg.InternalToken)
	assert.Equal(t, 5, cfg.RelayTimeoutSec)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("PORT", "8080")
	t.Setenv("RELAY_TIMEOUT_SEC", "9")
	t.Setenv("BROADCAST_RELAY_URL", "http://socket-server:3000/internal/broadcast")

	cfg := Load()
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 9, cfg.RelayTimeoutSec)
	assert.Equal(t, "http://socket-server:3000/internal/broadcast", cfg.BroadcastRelayURL)
}

func TestLoad_BadIntFallsBack(t *testing.T) {
	t.Setenv("RELAY_TIMEOUT_SEC", "not-a-number")
	cfg := Load()
	assert.Equal(t, 5, cfg.RelayTimeoutSec)
}
