package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Plot map console.
	ListenAddr  string
	RegistryURL string
	SessionTTL  time.Duration

	// Reference registry service.
	RegistryListenAddr string
	DBPath             string
	SeedFile           string
	RateLimit          float64
	RateBurst          int

	LogLevel string
	LogFile  string
}

func Load() *Config {
	return &Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		RegistryURL:        getEnv("REGISTRY_URL", "http://localhost:3001"),
		SessionTTL:         getDuration("SESSION_TTL", 12*time.Hour),
		RegistryListenAddr: getEnv("REGISTRY_LISTEN_ADDR", ":3001"),
		DBPath:             getEnv("DB_PATH", "/data/loteamento.db"),
		SeedFile:           getEnv("SEED_FILE", ""),
		RateLimit:          getFloat("REGISTRY_RATE_LIMIT", 0),
		RateBurst:          getInt("REGISTRY_RATE_BURST", 10),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFile:            getEnv("LOG_FILE", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

// Malformed numeric and duration values fall back to the default.

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) float64 {
	if f, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil && n > 0 {
		return n
	}
	return defaultVal
}
