// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Port           string          `yaml:"port"`
	FrontendURL    string          `yaml:"frontend_url"`
	DBPath         string          `yaml:"db_path"`
	LogLevel       string          `yaml:"log_level"`
	TickInterval   time.Duration   `yaml:"tick_interval"`
	GRPCHealthPort string          `yaml:"grpc_health_port"`
	Relay          RelayConfig     `yaml:"relay"`
	Gateway        GatewayConfig   `yaml:"gateway"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
	SSE            SSEConfig       `yaml:"sse"`
	Telemetry      TelemetryConfig `yaml:"telemetry"`
}

// RelayConfig controls how the session reaches the coach relay.
// An empty URL means the relay mounted on this server.
type RelayConfig struct {
	URL       string        `yaml:"url"`
	APIKey    string        `yaml:"api_key"`
	ClientKey string        `yaml:"client_key"`
	Timeout   time.Duration `yaml:"timeout"`
}

// GatewayConfig points the relay at an OpenAI-compatible completions API.
type GatewayConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// RateLimitConfig bounds relay requests per client.
type RateLimitConfig struct {
	RequestsPerWindow int           `yaml:"requests"`
	WindowDuration    time.Duration `yaml:"window"`
}

// SSEConfig tunes the live view stream.
type SSEConfig struct {
	KeepaliveInterval  time.Duration `yaml:"keepalive_interval"`
	RetryDelay         time.Duration `yaml:"retry_delay"`
	MaxRequestBodySize int64         `yaml:"max_request_body_size"`
}

// TelemetryConfig controls the OTLP metrics exporter.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:         "8080",
		DBPath:       "./data/focusbooster.db",
		LogLevel:     "info",
		TickInterval: time.Second,
		Relay: RelayConfig{
			Timeout: 30 * time.Second,
		},
		Gateway: GatewayConfig{
			URL:   "https://ai.gateway.lovable.dev/v1/chat/completions",
			Model: "google/gemini-2.5-flash",
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: 10,
			WindowDuration:    time.Minute,
		},
		SSE: SSEConfig{
			KeepaliveInterval:  10 * time.Second,
			RetryDelay:         5 * time.Second,
			MaxRequestBodySize: 1 << 20,
		},
		Telemetry: TelemetryConfig{
			Endpoint: "localhost:4317",
			Insecure: true,
		},
	}
}

// Load reads configuration from the optional CONFIG_FILE and then from
// environment variables, which take precedence.
func Load() (*Config, error) {
	cfg := Default()

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFile overlays YAML values onto c. A missing file is not an error.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse YAML config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.FrontendURL = getEnv("FRONTEND_URL", c.FrontendURL)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.TickInterval = getEnvDuration("TICK_INTERVAL", c.TickInterval)
	c.GRPCHealthPort = getEnv("GRPC_HEALTH_PORT", c.GRPCHealthPort)

	c.Relay.URL = getEnv("RELAY_URL", c.Relay.URL)
	c.Relay.APIKey = getEnv("RELAY_API_KEY", c.Relay.APIKey)
	c.Relay.ClientKey = getEnv("RELAY_CLIENT_KEY", c.Relay.ClientKey)
	c.Relay.Timeout = getEnvDuration("RELAY_TIMEOUT", c.Relay.Timeout)

	c.Gateway.URL = getEnv("GATEWAY_URL", c.Gateway.URL)
	c.Gateway.APIKey = getEnv("GATEWAY_API_KEY", c.Gateway.APIKey)
	c.Gateway.Model = getEnv("GATEWAY_MODEL", c.Gateway.Model)

	c.RateLimit.RequestsPerWindow = getEnvInt("RATE_LIMIT_REQUESTS", c.RateLimit.RequestsPerWindow)
	c.RateLimit.WindowDuration = getEnvDuration("RATE_LIMIT_WINDOW", c.RateLimit.WindowDuration)

	c.SSE.KeepaliveInterval = getEnvDuration("SSE_KEEPALIVE_INTERVAL", c.SSE.KeepaliveInterval)
	c.SSE.RetryDelay = getEnvDuration("SSE_RETRY_DELAY", c.SSE.RetryDelay)
	c.SSE.MaxRequestBodySize = int64(getEnvInt("MAX_REQUEST_BODY_SIZE", int(c.SSE.MaxRequestBodySize)))

	c.Telemetry.Enabled = getEnvBool("OTEL_ENABLED", c.Telemetry.Enabled)
	c.Telemetry.Endpoint = getEnv("OTEL_ENDPOINT", c.Telemetry.Endpoint)
	c.Telemetry.Insecure = getEnvBool("OTEL_INSECURE", c.Telemetry.Insecure)
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be > 0")
	}
	if c.Gateway.URL == "" {
		return fmt.Errorf("GATEWAY_URL cannot be empty")
	}
	if c.Gateway.Model == "" {
		return fmt.Errorf("GATEWAY_MODEL cannot be empty")
	}
	if c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.SSE.KeepaliveInterval <= 0 {
		return fmt.Errorf("SSE_KEEPALIVE_INTERVAL must be > 0")
	}
	if c.SSE.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0")
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("OTEL_ENDPOINT cannot be empty when OTEL_ENABLED is set")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the CORS origins for the view API.
func (c *Config) AllowedOrigins() []string {
	if c.IsDevelopment() {
		return []string{"*"}
	}
	return []string{c.FrontendURL}
}

// ParseLevel maps LOG_LEVEL to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", s)
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
