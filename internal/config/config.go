package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr            string
	Env             string
	DatabaseURL     string
	CleanupInterval time.Duration
	MaxIdleRoomAge  time.Duration
	StaleWaitingAge time.Duration
	ReadyTimeout    time.Duration
	RoundStartDelay time.Duration
	MaxMessageBytes int64
}

// Load reads configuration from the environment, after loading a .env file
// if one is present. Missing or unparseable values fall back to defaults.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:            getString("ADDR", ":8080"),
		Env:             getString("APP_ENV", "production"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		CleanupInterval: getDuration("CLEANUP_INTERVAL", 30*time.Second),
		MaxIdleRoomAge:  getDuration("MAX_IDLE_ROOM_AGE", 5*time.Minute),
		StaleWaitingAge: getDuration("STALE_WAITING_AGE", 15*time.Minute),
		ReadyTimeout:    getDuration("READY_TIMEOUT", 30*time.Second),
		RoundStartDelay: getDuration("ROUND_START_DELAY", 3*time.Second),
		MaxMessageBytes: getInt64("MAX_MESSAGE_BYTES", 16384),
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
