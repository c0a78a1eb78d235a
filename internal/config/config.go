package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const DefaultBaseURL = "https://amincard.net/api"

type Config struct {
	BaseURL         string
	Port            string
	Env             string
	SessionSecret   string
	SessionTTL      time.Duration
	ReadRetries     int
	UpstreamTimeout time.Duration
}

// Load reads the server configuration from the environment. A .env file
// in the working directory is applied first when present.
func Load() (*Config, error) {
	cfg, err := LoadClient()
	if err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET environment variable is required")
	}
	return cfg, nil
}

// LoadClient is Load without the server-only requirements, for tools that
// only talk to the seller API.
func LoadClient() (*Config, error) {
	_ = godotenv.Load()

	ttl, err := durationEnv("SESSION_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	timeout, err := durationEnv("UPSTREAM_TIMEOUT", 0)
	if err != nil {
		return nil, err
	}

	retries := 3
	if v := os.Getenv("READ_RETRIES"); v != "" {
		retries, err = strconv.Atoi(v)
		if err != nil || retries < 0 {
			return nil, fmt.Errorf("READ_RETRIES must be a non-negative integer, got %q", v)
		}
	}

	return &Config{
		BaseURL:         stringEnv("SELLER_API_BASE_URL", DefaultBaseURL),
		Port:            stringEnv("SERVER_PORT", "8080"),
		Env:             stringEnv("ENVIRONMENT", "development"),
		SessionSecret:   os.Getenv("SESSION_SECRET"),
		SessionTTL:      ttl,
		ReadRetries:     retries,
		UpstreamTimeout: timeout,
	}, nil
}

func (c *Config) Development() bool {
	return c.Env == "development"
}

func stringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
