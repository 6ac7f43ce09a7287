// Package config carries the realtime client settings.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the connection parameters for a realtime session.
type Config struct {
	// ServerURL is the HTTP(S) API origin, e.g. "https://academy.example.com".
	// The WebSocket URL is derived from it by mapping the scheme.
	ServerURL string

	// HeartbeatInterval is how often the client sends a liveness envelope
	// while the transport is open.
	HeartbeatInterval time.Duration

	// MaxReconnectAttempts bounds reconnection after an abnormal close.
	MaxReconnectAttempts int

	// ReconnectBaseDelay scales linearly with the attempt number:
	// attempt n waits n * ReconnectBaseDelay.
	ReconnectBaseDelay time.Duration
}

// Default returns the configuration matching the server's expectations.
func Default() Config {
	return Config{
		ServerURL:            "http://localhost:8080",
		HeartbeatInterval:    30 * time.Second,
		MaxReconnectAttempts: 3,
		ReconnectBaseDelay:   time.Second,
	}
}

// Load builds a Config from the environment, reading a .env file first if
// one is present. Unset or unparsable variables keep their defaults.
//
//	ACADEMY_SERVER_URL             API origin
//	ACADEMY_HEARTBEAT_INTERVAL     Go duration, e.g. "30s"
//	ACADEMY_MAX_RECONNECT_ATTEMPTS integer
//	ACADEMY_RECONNECT_BASE_DELAY   Go duration, e.g. "1s"
func Load() Config {
	_ = godotenv.Load()

	cfg := Default()
	if v := os.Getenv("ACADEMY_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("ACADEMY_HEARTBEAT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.HeartbeatInterval = d
		}
	}
	if v := os.Getenv("ACADEMY_MAX_RECONNECT_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxReconnectAttempts = n
		}
	}
	if v := os.Getenv("ACADEMY_RECONNECT_BASE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ReconnectBaseDelay = d
		}
	}
	return cfg
}
