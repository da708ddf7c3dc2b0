package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort             string
	DatabaseURL            string
	FeedBaseURL            string
	CacheTTLMinutes        string
	RefreshIntervalMinutes string
	FeedTimeoutSeconds     string
	EnableLiveGMP          bool
	EnableDetailEnrichment bool
	LogLevel               string
}

// FeedConfig holds the tunables of the upstream fetch layer.
type FeedConfig struct {
	BaseURL          string        `json:"base_url"`
	RequestTimeout   time.Duration `json:"request_timeout"`
	RequestRateLimit time.Duration `json:"request_rate_limit"`
	MaxRetryAttempts int           `json:"max_retry_attempts"`
}

// DefaultFeedConfig returns production-ready defaults for the feed layer.
func DefaultFeedConfig() *FeedConfig {
	return &FeedConfig{
		BaseURL:          "https://webnodejs.chittorgarh.com/cloud/ipodashboard",
		RequestTimeout:   10 * time.Second,
		RequestRateLimit: 200 * time.Millisecond,
		MaxRetryAttempts: 2,
	}
}

// CacheConfig holds the batch cache tunables.
type CacheConfig struct {
	FreshnessWindow time.Duration `json:"freshness_window"`
}

// DefaultCacheConfig returns the default freshness window for cached batches.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		FreshnessWindow: 5 * time.Minute,
	}
}

// GetCacheTTL returns the cache freshness window from environment or default.
func (c *Config) GetCacheTTL() time.Duration {
	if c.CacheTTLMinutes == "" {
		return 5 * time.Minute
	}

	minutes, err := strconv.Atoi(c.CacheTTLMinutes)
	if err != nil || minutes <= 0 {
		logrus.Warnf("Invalid CACHE_TTL_MINUTES value: %s, using default 5 minutes", c.CacheTTLMinutes)
		return 5 * time.Minute
	}

	return time.Duration(minutes) * time.Minute
}

// GetRefreshInterval returns the auto-refresh interval from environment or default.
func (c *Config) GetRefreshInterval() time.Duration {
	if c.RefreshIntervalMinutes == "" {
		return 5 * time.Minute
	}

	minutes, err := strconv.Atoi(c.RefreshIntervalMinutes)
	if err != nil || minutes <= 0 {
		logrus.Warnf("Invalid REFRESH_INTERVAL_MINUTES value: %s, using default 5 minutes", c.RefreshIntervalMinutes)
		return 5 * time.Minute
	}

	return time.Duration(minutes) * time.Minute
}

// GetFeedTimeout returns the per-request feed timeout from environment or default.
func (c *Config) GetFeedTimeout() time.Duration {
	if c.FeedTimeoutSeconds == "" {
		return 10 * time.Second
	}

	seconds, err := strconv.Atoi(c.FeedTimeoutSeconds)
	if err != nil || seconds <= 0 {
		logrus.Warnf("Invalid FEED_TIMEOUT_SECONDS value: %s, using default 10 seconds", c.FeedTimeoutSeconds)
		return 10 * time.Second
	}

	return time.Duration(seconds) * time.Second
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	return &Config{
		ServerPort:             getEnv("SERVER_PORT", "8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		FeedBaseURL:            getEnv("FEED_BASE_URL", DefaultFeedConfig().BaseURL),
		CacheTTLMinutes:        getEnv("CACHE_TTL_MINUTES", "5"),
		RefreshIntervalMinutes: getEnv("REFRESH_INTERVAL_MINUTES", "5"),
		FeedTimeoutSeconds:     getEnv("FEED_TIMEOUT_SECONDS", "10"),
		EnableLiveGMP:          getEnvBool("ENABLE_LIVE_GMP", false),
		EnableDetailEnrichment: getEnvBool("ENABLE_DETAIL_ENRICHMENT", false),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logrus.Warnf("Invalid boolean value for %s: %s, using default %v", key, value, fallback)
		return fallback
	}
	return parsed
}
