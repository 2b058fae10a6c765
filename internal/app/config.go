package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	APIURL       string        // Optional: base URL of the Folio API (default: http://localhost:5001)
	DatabaseFile string        // Optional: path to SQLite session database file (default: ./folio.db)
	CacheTTL     time.Duration // Optional: freshness window for cached reads (default: 60s)
	HTTPTimeout  time.Duration // Optional: per-request HTTP timeout (default: 10s)

	LoginRate   int           // Optional: credential submissions allowed per window (default: 5)
	LoginWindow time.Duration // Optional: throttle window for credential submissions (default: 1m)

	CameraFacing string // Optional: preferred camera facing mode (default: user)
	CameraWidth  int    // Optional: preferred capture width (default: 1280)
	CameraHeight int    // Optional: preferred capture height (default: 720)

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: text)
}

func LoadConfig() Config {
	return Config{
		APIURL:       getEnvOrDefault("FOLIO_API_URL", "http://localhost:5001"),
		DatabaseFile: getEnvOrDefault("FOLIO_DATABASE_FILE", "folio.db"),
		CacheTTL:     getEnvDurationOrDefault("FOLIO_CACHE_TTL", 60*time.Second),
		HTTPTimeout:  getEnvDurationOrDefault("FOLIO_HTTP_TIMEOUT", 10*time.Second),

		LoginRate:   getEnvIntOrDefault("FOLIO_LOGIN_RATE", 5),
		LoginWindow: getEnvDurationOrDefault("FOLIO_LOGIN_WINDOW", time.Minute),

		CameraFacing: getEnvOrDefault("FOLIO_CAMERA_FACING", "user"),
		CameraWidth:  getEnvIntOrDefault("FOLIO_CAMERA_WIDTH", 1280),
		CameraHeight: getEnvIntOrDefault("FOLIO_CAMERA_HEIGHT", 720),

		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are taken as seconds.
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
