package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server settings
	Port string `json:"port"`
	Host string `json:"host"`

	// OpenAI API settings
	OpenAIBaseURL     string  `json:"openai_base_url"`
	OpenAIModel       string  `json:"openai_model"`
	OpenAIMaxTokens   int     `json:"openai_max_tokens"`
	OpenAITemperature float64 `json:"openai_temperature"`

	// Timeouts in seconds
	RequestTimeout int `json:"request_timeout_seconds"`
	ProbeTimeout   int `json:"probe_timeout_seconds"`
	FetchTimeout   int `json:"fetch_timeout_seconds"`

	// Credential storage settings
	StorageType        string `json:"storage_type"` // "memory", "gcs" or "redis"
	GCSBucket          string `json:"gcs_bucket"`
	GCSPrefix          string `json:"gcs_prefix"`
	GCSCredentialsFile string `json:"-"`
	RedisAddr          string `json:"redis_addr"`
	RedisPassword      string `json:"-"` // Don't expose in JSON
	RedisDB            int    `json:"redis_db"`

	// Estimate cache settings (0 disables the cache)
	CacheType     string `json:"cache_type"` // "memory" or "redis"
	CacheDuration int    `json:"cache_duration_minutes"`

	// Article extraction
	MaxArticleChars int `json:"max_article_chars"`

	// API auth token for key management and analysis routes
	APIAuthToken string `json:"-"` // Don't expose in JSON

	// Cron expression for re-probing the stored key; empty disables it
	ReverifySchedule string `json:"reverify_schedule"`

	// Logging
	LogLevel       string `json:"log_level"`
	LogDevelopment bool   `json:"log_development"`
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	config := &Config{
		Port:               getEnvOrDefault("PORT", "8080"),
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		OpenAIBaseURL:      getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:        getEnvOrDefault("OPENAI_MODEL", "gpt-3.5-turbo"),
		OpenAIMaxTokens:    getEnvOrDefaultInt("OPENAI_MAX_TOKENS", 100),
		OpenAITemperature:  getEnvOrDefaultFloat("OPENAI_TEMPERATURE", 0.3),
		RequestTimeout:     getEnvOrDefaultInt("REQUEST_TIMEOUT_SECONDS", 30),
		ProbeTimeout:       getEnvOrDefaultInt("PROBE_TIMEOUT_SECONDS", 10),
		FetchTimeout:       getEnvOrDefaultInt("FETCH_TIMEOUT_SECONDS", 20),
		StorageType:        getEnvOrDefault("STORAGE_TYPE", "memory"),
		GCSBucket:          getEnvOrDefault("GCS_BUCKET", ""),
		GCSPrefix:          getEnvOrDefault("GCS_PREFIX", "credentials/"),
		GCSCredentialsFile: getEnvOrDefault("GCS_CREDENTIALS_FILE", ""),
		RedisAddr:          getEnvOrDefault("REDIS_ADDR", ""),
		RedisPassword:      getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:            getEnvOrDefaultInt("REDIS_DB", 0),
		CacheType:          getEnvOrDefault("CACHE_TYPE", "memory"),
		CacheDuration:      getEnvOrDefaultInt("CACHE_DURATION_MINUTES", 60),
		MaxArticleChars:    getEnvOrDefaultInt("MAX_ARTICLE_CHARS", 12000),
		APIAuthToken:       getEnvOrDefault("API_AUTH_TOKEN", ""),
		ReverifySchedule:   getEnvOrDefault("REVERIFY_SCHEDULE", "@every 6h"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogDevelopment:     getEnvOrDefaultBool("LOG_DEVELOPMENT", false),
	}

	return config, config.validate()
}

// RequestTimeoutDuration returns the chat-completion timeout
func (c *Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// ProbeTimeoutDuration returns the key probe timeout
func (c *Config) ProbeTimeoutDuration() time.Duration {
	return time.Duration(c.ProbeTimeout) * time.Second
}

// FetchTimeoutDuration returns the page fetch timeout
func (c *Config) FetchTimeoutDuration() time.Duration {
	return time.Duration(c.FetchTimeout) * time.Second
}

// CacheTTL returns the estimate cache lifetime
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheDuration) * time.Minute
}

// validate checks that configuration values are usable
func (c *Config) validate() error {
	if c.OpenAIBaseURL == "" {
		return &ConfigError{Field: "OPENAI_BASE_URL", Message: "base URL is required"}
	}
	if c.OpenAIModel == "" {
		return &ConfigError{Field: "OPENAI_MODEL", Message: "model is required"}
	}
	if c.OpenAIMaxTokens <= 0 {
		return &ConfigError{Field: "OPENAI_MAX_TOKENS", Message: "must be positive"}
	}
	if c.OpenAITemperature < 0 || c.OpenAITemperature > 2 {
		return &ConfigError{Field: "OPENAI_TEMPERATURE", Message: "must be between 0 and 2"}
	}
	if c.RequestTimeout <= 0 || c.ProbeTimeout <= 0 || c.FetchTimeout <= 0 {
		return &ConfigError{Field: "TIMEOUT", Message: "timeouts must be positive"}
	}

	switch c.StorageType {
	case "memory":
	case "gcs":
		if c.GCSBucket == "" {
			return &ConfigError{Field: "GCS_BUCKET", Message: "bucket is required for gcs storage"}
		}
	case "redis":
		if c.RedisAddr == "" {
			return &ConfigError{Field: "REDIS_ADDR", Message: "address is required for redis storage"}
		}
	default:
		return &ConfigError{Field: "STORAGE_TYPE", Message: "must be memory, gcs or redis"}
	}

	switch c.CacheType {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			return &ConfigError{Field: "REDIS_ADDR", Message: "address is required for redis cache"}
		}
	default:
		return &ConfigError{Field: "CACHE_TYPE", Message: "must be memory or redis"}
	}

	if c.CacheDuration < 0 {
		return &ConfigError{Field: "CACHE_DURATION_MINUTES", Message: "must not be negative"}
	}
	return nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default if not set
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
