// Package config loads server configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is everything the server needs at startup.
type Config struct {
	ListenAddr string
	DBPath     string
	IndexerURL string
	LogLevel   string

	ChainLead        int64
	ChainPollRetries int
	ChainPollBackoff time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first if present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		DBPath:     getEnv("DB_PATH", "caseclash.db"),
		IndexerURL: getEnv("INDEXER_URL", "http://localhost:9200"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		ChainLead:        getEnvInt64("CHAIN_LEAD", 5),
		ChainPollRetries: int(getEnvInt64("CHAIN_POLL_RETRIES", 3)),
		ChainPollBackoff: getEnvDuration("CHAIN_POLL_BACKOFF", 1500*time.Millisecond),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
