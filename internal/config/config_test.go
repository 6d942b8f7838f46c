package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.App.Environment != "development" {
		t.Errorf("Environment = %q, want development", cfg.App.Environment)
	}
	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Errorf("BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Realtime.URL != "ws://localhost:8000/ws/advisory" {
		t.Errorf("Realtime.URL = %q", cfg.Realtime.URL)
	}
	if cfg.Realtime.BaseRetryDelay != time.Second {
		t.Errorf("BaseRetryDelay = %v, want 1s", cfg.Realtime.BaseRetryDelay)
	}
	if cfg.Realtime.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.Realtime.MaxRetries)
	}
	if cfg.Storage.Path != "vecta.db" {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("VECTA_WS_URL", "wss://advisory.vecta.example/ws")
	t.Setenv("VECTA_WS_MAX_RETRIES", "8")
	t.Setenv("VECTA_WS_BASE_RETRY_DELAY", "250ms")
	t.Setenv("VECTA_STORAGE_PATH", "/tmp/vecta-test.db")

	cfg := Load()

	if cfg.Realtime.URL != "wss://advisory.vecta.example/ws" {
		t.Errorf("Realtime.URL = %q", cfg.Realtime.URL)
	}
	if cfg.Realtime.MaxRetries != 8 {
		t.Errorf("MaxRetries = %d, want 8", cfg.Realtime.MaxRetries)
	}
	if cfg.Realtime.BaseRetryDelay != 250*time.Millisecond {
		t.Errorf("BaseRetryDelay = %v, want 250ms", cfg.Realtime.BaseRetryDelay)
	}
	if cfg.Storage.Path != "/tmp/vecta-test.db" {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("VECTA_WS_MAX_RETRIES", "many")
	t.Setenv("VECTA_WS_BASE_RETRY_DELAY", "soon")

	cfg := Load()

	if cfg.Realtime.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want the fallback 5", cfg.Realtime.MaxRetries)
	}
	if cfg.Realtime.BaseRetryDelay != time.Second {
		t.Errorf("BaseRetryDelay = %v, want the fallback 1s", cfg.Realtime.BaseRetryDelay)
	}
}
