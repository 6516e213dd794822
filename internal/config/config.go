// Package config provides centralized configuration management.
// All tunables live here; the rest of the codebase receives values from
// this package instead of reading the environment directly.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ServerConfig holds HTTP/WebSocket listener settings.
type ServerConfig struct {
	Host string
	Port int
}

// Addr returns the listen address in host:port form.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Host: "0.0.0.0",
		Port: 8080,
	}
}

// ServerFromEnv returns server configuration with environment overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if h := os.Getenv("HOST"); h != "" {
		cfg.Host = h
	}
	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}

	return cfg
}

// TransportConfig controls the WebSocket transport layer.
type TransportConfig struct {
	MaxConnections      int           // Hard cap on concurrent WebSocket connections
	MaxConnectionsPerIP int           // Per-IP concurrent connection cap
	SendQueueSize       int           // Per-connection outbound buffer (messages)
	WriteTimeout        time.Duration // Deadline per outbound write; a slow peer is pruned, not waited on
	PongTimeout         time.Duration // Read deadline refreshed by pongs
	ReadLimit           int64         // Max inbound frame size in bytes
	AllowedOrigins      []string      // Origins accepted at upgrade; empty allows all
}

// DefaultTransport returns production-safe transport defaults.
func DefaultTransport() TransportConfig {
	return TransportConfig{
		MaxConnections:      500,
		MaxConnectionsPerIP: 10,
		SendQueueSize:       64,
		WriteTimeout:        5 * time.Second,
		PongTimeout:         60 * time.Second,
		ReadLimit:           64 << 10, // event payloads are small
	}
}

// TransportFromEnv returns transport configuration with environment overrides.
func TransportFromEnv() TransportConfig {
	cfg := DefaultTransport()

	if v := getEnvInt("MAX_CONNECTIONS", 0); v > 0 {
		cfg.MaxConnections = v
	}
	if v := getEnvInt("MAX_CONNECTIONS_PER_IP", 0); v > 0 {
		cfg.MaxConnectionsPerIP = v
	}
	if v := getEnvInt("SEND_QUEUE_SIZE", 0); v > 0 {
		cfg.SendQueueSize = v
	}

	return cfg
}

// RateLimitConfig configures the per-IP HTTP rate limiter. This guards the
// HTTP surface only; accepted relay events are never rate limited.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	CleanupInterval   time.Duration
}

// DefaultRateLimit returns production-safe rate limiter defaults.
func DefaultRateLimit() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		Burst:             20,
		CleanupInterval:   5 * time.Minute,
	}
}

// LogConfig holds logger settings.
type LogConfig struct {
	File       string // When set, log to this file with rotation instead of stdout
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Debug      bool
}

// DefaultLog returns the default logging configuration.
func DefaultLog() LogConfig {
	return LogConfig{
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 7,
	}
}

// LogFromEnv returns logging configuration with environment overrides.
func LogFromEnv() LogConfig {
	cfg := DefaultLog()

	cfg.File = os.Getenv("LOG_FILE")
	if os.Getenv("LOG_DEBUG") == "true" {
		cfg.Debug = true
	}

	return cfg
}

// DebugConfig configures the internal observability server.
type DebugConfig struct {
	Enabled       bool
	ListenAddr    string // Keep on localhost; pprof must not be exposed externally
	BasicAuthUser string
	BasicAuthPass string
}

// DefaultDebug returns safe observability defaults.
func DefaultDebug() DebugConfig {
	return DebugConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// DebugFromEnv returns observability configuration with environment overrides.
func DebugFromEnv() DebugConfig {
	cfg := DefaultDebug()

	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.Enabled = false
	}
	if addr := os.Getenv("DEBUG_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	cfg.BasicAuthUser = os.Getenv("DEBUG_AUTH_USER")
	cfg.BasicAuthPass = os.Getenv("DEBUG_AUTH_PASS")

	return cfg
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Server    ServerConfig
	Transport TransportConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Debug     DebugConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Server:    ServerFromEnv(),
		Transport: TransportFromEnv(),
		RateLimit: DefaultRateLimit(),
		Log:       LogFromEnv(),
		Debug:     DebugFromEnv(),
	}
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
