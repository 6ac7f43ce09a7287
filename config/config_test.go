package config

import (
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.ServerURL != "http://localhost:8080" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.HeartbeatInterval != 30*time.Second {
		t.Errorf("HeartbeatInterval = %v", cfg.HeartbeatInterval)
	}
	if cfg.MaxReconnectAttempts != 3 {
		t.Errorf("MaxReconnectAttempts = %d", cfg.MaxReconnectAttempts)
	}
	if cfg.ReconnectBaseDelay != time.Second {
		t.Errorf("ReconnectBaseDelay = %v", cfg.ReconnectBaseDelay)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ACADEMY_SERVER_URL", "https://academy.example.com")
	t.Setenv("ACADEMY_HEARTBEAT_INTERVAL", "10s")
	t.Setenv("ACADEMY_MAX_RECONNECT_ATTEMPTS", "5")
	t.Setenv("ACADEMY_RECONNECT_BASE_DELAY", "250ms")

	cfg := Load()
	if cfg.ServerURL != "https://academy.example.com" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.HeartbeatInterval != 10*time.Second {
		t.Errorf("HeartbeatInterval = %v", cfg.HeartbeatInterval)
	}
	if cfg.MaxReconnectAttempts != 5 {
		t.Errorf("MaxReconnectAttempts = %d", cfg.MaxReconnectAttempts)
	}
	if cfg.ReconnectBaseDelay != 250*time.Millisecond {
		t.Errorf("ReconnectBaseDelay = %v", cfg.ReconnectBaseDelay)
	}
}

func TestLoadIgnoresUnparsableValues(t *testing.T) {
	t.Setenv("ACADEMY_HEARTBEAT_INTERVAL", "soon")
	t.Setenv("ACADEMY_MAX_RECONNECT_ATTEMPTS", "-1")
	t.Setenv("ACADEMY_RECONNECT_BASE_DELAY", "0")

	cfg := Load()
	def := Default()
	if cfg.HeartbeatInterval != def.HeartbeatInterval {
		t.Errorf("HeartbeatInterval = %v, want default", cfg.HeartbeatInterval)
	}
	if cfg.MaxReconnectAttempts != def.MaxReconnectAttempts {
		t.Errorf("MaxReconnectAttempts = %d, want default", cfg.MaxReconnectAttempts)
	}
	if cfg.ReconnectBaseDelay != def.ReconnectBaseDelay {
		t.Errorf("ReconnectBaseDelay = %v, want default", cfg.ReconnectBaseDelay)
	}
}
