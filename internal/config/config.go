// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New() returns a Config populated with defaults.
//   - Load(ctx) layers defaults, an optional YAML file and SEASONPOINTS_ env vars.
//   - Validation failures wrap ErrInvalidConfig.
package config

import (
	"time"
)

// Storage backends accepted by StorageBackend.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// PublicURL is the externally visible page URL. It is the OAuth
	// redirect_uri and the base of the share link.
	PublicURL string `koanf:"public_url"`

	// Slots is the number of rank inputs on the page.
	Slots int `koanf:"slots"`

	// APIEndpoint is the identity provider base URL.
	APIEndpoint string `koanf:"api_endpoint"`

	// ClientID is the public OAuth client identifier.
	ClientID string `koanf:"client_id"`

	// Scope is sent verbatim in the authorization request.
	Scope string `koanf:"scope"`

	// HTTPTimeoutMS bounds each outbound call to the identity provider.
	HTTPTimeoutMS int `koanf:"http_timeout_ms"`

	// StorageBackend selects the key-value store: memory, sqlite or redis.
	StorageBackend string `koanf:"storage_backend"`

	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string `koanf:"sqlite_path"`

	// RedisURL is the connection URL used by the redis backend.
	RedisURL string `koanf:"redis_url"`

	// SessionSecret signs the browser-session cookie holding PKCE material.
	SessionSecret string `koanf:"session_secret"`

	// CookieSecure marks every cookie Secure; enable behind TLS.
	CookieSecure bool `koanf:"cookie_secure"`

	// AuthRatePerSecond and AuthRateBurst throttle OAuth-bearing routes per client.
	AuthRatePerSecond float64 `koanf:"auth_rate_per_second"`
	AuthRateBurst     int     `koanf:"auth_rate_burst"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		PublicURL:         "http://localhost:9080/",
		Slots:             25,
		APIEndpoint:       "https://api.trackmania.com",
		ClientID:          "f1aca30ec0e5b7454537",
		Scope:             "",
		HTTPTimeoutMS:     10_000,
		StorageBackend:    BackendMemory,
		SQLitePath:        "seasonpoints.db",
		RedisURL:          "redis://localhost:6379/0",
		SessionSecret:     "dev-only-session-secret-change-me-0123456789",
		CookieSecure:      false,
		AuthRatePerSecond: 2,
		AuthRateBurst:     5,
	}
}

// HTTPTimeout returns HTTPTimeoutMS as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutMS) * time.Millisecond
}
