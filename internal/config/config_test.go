package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("OPENAI_TEMPERATURE", "0.1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("Expected OpenAIModel to be 'gpt-4o-mini', got '%s'", cfg.OpenAIModel)
	}

	if cfg.OpenAITemperature != 0.1 {
		t.Errorf("Expected OpenAITemperature to be 0.1, got %v", cfg.OpenAITemperature)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected Port to be '8080', got '%s'", cfg.Port)
	}

	if cfg.OpenAIMaxTokens != 100 {
		t.Errorf("Expected OpenAIMaxTokens to be 100, got %d", cfg.OpenAIMaxTokens)
	}

	if cfg.StorageType != "memory" {
		t.Errorf("Expected StorageType to be 'memory', got '%s'", cfg.StorageType)
	}
}

func TestDurations(t *testing.T) {
	cfg := &Config{RequestTimeout: 30, ProbeTimeout: 10, FetchTimeout: 5, CacheDuration: 2}

	if cfg.RequestTimeoutDuration() != 30*time.Second {
		t.Errorf("Unexpected request timeout %v", cfg.RequestTimeoutDuration())
	}
	if cfg.ProbeTimeoutDuration() != 10*time.Second {
		t.Errorf("Unexpected probe timeout %v", cfg.ProbeTimeoutDuration())
	}
	if cfg.FetchTimeoutDuration() != 5*time.Second {
		t.Errorf("Unexpected fetch timeout %v", cfg.FetchTimeoutDuration())
	}
	if cfg.CacheTTL() != 2*time.Minute {
		t.Errorf("Unexpected cache TTL %v", cfg.CacheTTL())
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		field string
	}{
		{"unknown storage", map[string]string{"STORAGE_TYPE": "sqlite"}, "STORAGE_TYPE"},
		{"gcs without bucket", map[string]string{"STORAGE_TYPE": "gcs"}, "GCS_BUCKET"},
		{"redis without address", map[string]string{"STORAGE_TYPE": "redis"}, "REDIS_ADDR"},
		{"temperature out of range", map[string]string{"OPENAI_TEMPERATURE": "3"}, "OPENAI_TEMPERATURE"},
		{"zero max tokens", map[string]string{"OPENAI_MAX_TOKENS": "0"}, "OPENAI_MAX_TOKENS"},
		{"negative cache", map[string]string{"CACHE_DURATION_MINUTES": "-1"}, "CACHE_DURATION_MINUTES"},
		{"unknown cache", map[string]string{"CACHE_TYPE": "memcached"}, "CACHE_TYPE"},
		{"redis cache without address", map[string]string{"CACHE_TYPE": "redis"}, "REDIS_ADDR"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			for k, v := range test.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("Expected validation error")
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected *ConfigError, got %T", err)
			}
			if cfgErr.Field != test.field {
				t.Errorf("Expected field '%s', got '%s'", test.field, cfgErr.Field)
			}
		})
	}
}

func TestGetEnvOrDefaultHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "not-a-number")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_FLOAT", "0.75")

	if got := getEnvOrDefaultInt("TEST_INT", 7); got != 7 {
		t.Errorf("Expected fallback 7, got %d", got)
	}
	if got := getEnvOrDefaultBool("TEST_BOOL", false); !got {
		t.Error("Expected true")
	}
	if got := getEnvOrDefaultFloat("TEST_FLOAT", 0); got != 0.75 {
		t.Errorf("Expected 0.75, got %v", got)
	}
	if got := getEnvOrDefault("TEST_UNSET_VALUE", "fallback"); got != "fallback" {
		t.Errorf("Expected 'fallback', got '%s'", got)
	}
}
