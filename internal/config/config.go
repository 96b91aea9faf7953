package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port    int
	DevMode bool

	// Database
	DatabasePath string

	// Scheduler: one tick, four dispatchers, in order
	SchedulerTickSeconds int

	// K-line cache
	KlineCacheTTLSeconds int
	KlineCacheMaxEntries int

	// Market-data client
	MarketUserAgent      string
	MarketReferer        string
	HTTPTimeoutSeconds   int

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnvAsInt("PORT", 8001),
		DevMode:              getEnvAsBool("DEV_MODE", false),
		DatabasePath:         getEnv("DATABASE_PATH", "./data/watcher.db"),
		SchedulerTickSeconds: getEnvAsInt("SCHEDULER_TICK_SECONDS", 10),
		KlineCacheTTLSeconds: getEnvAsInt("KLINE_CACHE_TTL_SECONDS", 300),
		KlineCacheMaxEntries: getEnvAsInt("KLINE_CACHE_MAX_ENTRIES", 100),
		MarketUserAgent:      getEnv("MARKET_USER_AGENT", "Mozilla/5.0"),
		MarketReferer:        getEnv("MARKET_REFERER", "https://quote.eastmoney.com/"),
		HTTPTimeoutSeconds:   getEnvAsInt("HTTP_TIMEOUT_SECONDS", 30),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.SchedulerTickSeconds <= 0 {
		return fmt.Errorf("SCHEDULER_TICK_SECONDS must be positive")
	}
	if c.KlineCacheTTLSeconds <= 0 {
		return fmt.Errorf("KLINE_CACHE_TTL_SECONDS must be positive")
	}
	if c.KlineCacheMaxEntries <= 0 {
		return fmt.Errorf("KLINE_CACHE_MAX_ENTRIES must be positive")
	}
	return nil
}

// HTTPTimeout returns the configured client timeout as a time.Duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
