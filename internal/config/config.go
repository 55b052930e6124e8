package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the termscope console and CLI.
type Config struct {
	Server   ServerConfig
	API      APIConfig
	Workflow WorkflowConfig
	Database DatabaseConfig
	Redis    RedisConfig
}

type ServerConfig struct {
	Port              int
	Env               string
	APIKeyHash        string
	RequestsPerMinute int
}

// APIConfig describes the remote document-analysis backend.
type APIConfig struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	Burst     int
}

type WorkflowConfig struct {
	PollInterval     time.Duration
	StatusClearDelay time.Duration
	TrendConcurrency int
	PreviewTTL       time.Duration
}

// DatabaseConfig is optional; an empty URL disables run history.
type DatabaseConfig struct {
	URL             string
	MigrationsDir   string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig is optional; an empty URL disables the preview cache and rate limiting.
type RedisConfig struct {
	URL string
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:              envInt("TERMSCOPE_PORT", 8080),
			Env:               envString("TERMSCOPE_ENV", "development"),
			APIKeyHash:        os.Getenv("TERMSCOPE_API_KEY_HASH"),
			RequestsPerMinute: envInt("TERMSCOPE_REQUESTS_PER_MINUTE", 120),
		},
		API: APIConfig{
			BaseURL:   apiBaseURL(),
			Timeout:   envDuration("TERMSCOPE_API_TIMEOUT", 10*time.Second),
			RateLimit: envFloat("TERMSCOPE_API_RATE_LIMIT", 0),
			Burst:     envInt("TERMSCOPE_API_BURST", 5),
		},
		Workflow: WorkflowConfig{
			PollInterval:     envDuration("TERMSCOPE_POLL_INTERVAL", time.Second),
			StatusClearDelay: envDuration("TERMSCOPE_STATUS_CLEAR_DELAY", 5*time.Second),
			TrendConcurrency: envInt("TERMSCOPE_TREND_CONCURRENCY", 8),
			PreviewTTL:       envDuration("TERMSCOPE_PREVIEW_TTL", 5*time.Minute),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MigrationsDir:   envString("DATABASE_MIGRATIONS_DIR", "migrations"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// apiBaseURL prefers TERMSCOPE_API_BASE_URL and otherwise composes scheme://host:port.
func apiBaseURL() string {
	if v := os.Getenv("TERMSCOPE_API_BASE_URL"); v != "" {
		return strings.TrimRight(v, "/")
	}
	host := os.Getenv("TERMSCOPE_API_HOST")
	if host == "" {
		return ""
	}
	scheme := envString("TERMSCOPE_API_SCHEME", "http")
	port := envString("TERMSCOPE_API_PORT", "5000")
	return fmt.Sprintf("%s://%s:%s", scheme, host, port)
}

func (c *Config) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("TERMSCOPE_API_BASE_URL (or TERMSCOPE_API_HOST) is required")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("TERMSCOPE_API_BASE_URL must start with http:// or https://, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("TERMSCOPE_API_TIMEOUT must be positive")
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("TERMSCOPE_API_RATE_LIMIT must not be negative")
	}

	if c.Workflow.PollInterval <= 0 {
		return fmt.Errorf("TERMSCOPE_POLL_INTERVAL must be positive")
	}
	if c.Workflow.StatusClearDelay <= 0 {
		return fmt.Errorf("TERMSCOPE_STATUS_CLEAR_DELAY must be positive")
	}
	if c.Workflow.TrendConcurrency < 1 {
		return fmt.Errorf("TERMSCOPE_TREND_CONCURRENCY must be at least 1, got %d", c.Workflow.TrendConcurrency)
	}

	if c.Redis.URL != "" && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
