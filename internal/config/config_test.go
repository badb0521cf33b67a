package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 30*time.Second, cfg.CleanupInterval)
	assert.Equal(t, 5*time.Minute, cfg.MaxIdleRoomAge)
	assert.Equal(t, 15*time.Minute, cfg.StaleWaitingAge)
	assert.Equal(t, 30*time.Second, cfg.ReadyTimeout)
	assert.Equal(t, 3*time.Second, cfg.RoundStartDelay)
	assert.Equal(t, int64(16384), cfg.MaxMessageBytes)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9999")
	t.Setenv("CLEANUP_INTERVAL", "1m")
	t.Setenv("MAX_MESSAGE_BYTES", "4096")

	cfg := Load()
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, time.Minute, cfg.CleanupInterval)
	assert.Equal(t, int64(4096), cfg.MaxMessageBytes)
}

func TestLoadIgnoresGarbage(t *testing.T) {
	t.Setenv("CLEANUP_INTERVAL", "soon")
	t.Setenv("MAX_MESSAGE_BYTES", "lots")

	cfg := Load()
	assert.Equal(t, 30*time.Second, cfg.CleanupInterval)
	assert.Equal(t, int64(16384), cfg.MaxMessageBytes)
}
