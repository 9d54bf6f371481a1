// Package config provides application configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	APIURL      string
	Env         string
	FrontendURL string
	APITimeout  time.Duration
	Notify      NotifyConfig
	Telemetry   TelemetryConfig
}

// NotifyConfig tunes the notification hub and its streams.
type NotifyConfig struct {
	ToastLimit        int
	QueueSize         int
	KeepaliveInterval time.Duration
	RetryDelay        time.Duration
}

// TelemetryConfig controls trace export. An empty endpoint disables export.
type TelemetryConfig struct {
	ServiceName  string
	OTLPEndpoint string
	Insecure     bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		APIURL:      strings.TrimRight(getEnv("API_URL", "http://localhost:5000/api"), "/"),
		Env:         getEnv("APP_ENV", "development"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		APITimeout:  getEnvDuration("API_TIMEOUT", 30*time.Second),
		Notify: NotifyConfig{
			ToastLimit:        getEnvInt("TOAST_LIMIT", 1),
			QueueSize:         getEnvInt("NOTIFY_QUEUE_SIZE", 100),
			KeepaliveInterval: getEnvDuration("NOTIFY_KEEPALIVE", 15*time.Second),
			RetryDelay:        getEnvDuration("NOTIFY_RETRY_DELAY", 5*time.Second),
		},
		Telemetry: TelemetryConfig{
			ServiceName:  getEnv("SERVICE_NAME", "agentdesk"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:     getEnvBool("OTEL_INSECURE", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.APIURL == "" {
		return fmt.Errorf("API_URL cannot be empty")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_URL must be an absolute URL, got %q", c.APIURL)
	}
	if c.APITimeout < 0 {
		return fmt.Errorf("API_TIMEOUT cannot be negative")
	}
	if c.Notify.ToastLimit <= 0 {
		return fmt.Errorf("TOAST_LIMIT must be > 0")
	}
	if c.Notify.QueueSize <= 0 {
		return fmt.Errorf("NOTIFY_QUEUE_SIZE must be > 0")
	}
	if c.Notify.KeepaliveInterval <= 0 {
		return fmt.Errorf("NOTIFY_KEEPALIVE must be > 0")
	}
	return nil
}

// IsProduction reports whether cookies must be marked Secure.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return !c.IsProduction()
}

// AllowedOrigins returns the CORS origins for the configured frontend.
func (c *Config) AllowedOrigins() []string {
	if c.FrontendURL == "" {
		if c.IsDevelopment() {
			return []string{"*"}
		}
		return nil
	}
	return []string{strings.TrimRight(c.FrontendURL, "/")}
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

// getEnvDuration accepts Go durations ("30s") or plain seconds ("30").
// A value of 0 is kept and means no timeout where that applies.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
