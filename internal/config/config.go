package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/teemow/autogmail/internal/endpoint"
	"github.com/teemow/autogmail/internal/logging"
	"github.com/teemow/autogmail/internal/tokenstore"
)

// Environment variables read by FromEnv.
const (
	EnvAPIURL         = "AUTOGMAIL_API_URL"
	EnvLegacyAPIURL   = "VITE_API_URL"
	EnvAPITimeout     = "AUTOGMAIL_API_TIMEOUT"
	EnvPublicURL      = "AUTOGMAIL_PUBLIC_URL"
	EnvSiteAddr       = "AUTOGMAIL_ADDR"
	EnvDemoFallback   = "AUTOGMAIL_DEMO_FALLBACK"
	EnvSecureCookies  = "AUTOGMAIL_SECURE_COOKIES"
	EnvTokenStore     = "AUTOGMAIL_TOKEN_STORE"
	EnvTokenFile      = "AUTOGMAIL_TOKEN_FILE"
	EnvRedisURL       = "REDIS_URL"
	EnvRedisKeyPrefix = "AUTOGMAIL_REDIS_KEY_PREFIX"
	EnvTokenTTL       = "AUTOGMAIL_TOKEN_TTL"
	EnvLogLevel       = "AUTOGMAIL_LOG_LEVEL"
	EnvLogFormat      = "AUTOGMAIL_LOG_FORMAT"
	EnvMetricsAddr    = "AUTOGMAIL_METRICS_ADDR"
)

// Defaults.
const (
	DefaultSiteAddr           = ":8080"
	DefaultMetricsAddr        = ":9090"
	DefaultAPITimeout         = 30 * time.Second
	DefaultSessionIdleTimeout = 24 * time.Hour
)

// Config is the complete runtime configuration.
type Config struct {
	API        APIConfig         `yaml:"api"`
	Site       SiteConfig        `yaml:"site"`
	TokenStore tokenstore.Config `yaml:"token_store"`
	Log        LogConfig         `yaml:"log"`
	Metrics    MetricsConfig     `yaml:"metrics"`
}

// APIConfig describes how to reach the backend.
type APIConfig struct {
	// URL overrides the backend base URL. "/api/v1" is appended when missing.
	URL string `yaml:"url"`

	// Timeout bounds each backend request
	Timeout time.Duration `yaml:"timeout"`
}

// SiteConfig configures the web dashboard.
type SiteConfig struct {
	// Addr is the listen address of the site
	Addr string `yaml:"addr"`

	// PublicURL is the site's public address. Its origin is the same-origin
	// backend fallback of the site when no API URL is configured
	PublicURL string `yaml:"public_url"`

	// DemoFallback shows placeholder emails and drafts when the backend fails
	DemoFallback bool `yaml:"demo_fallback"`

	// InboxSize is the number of inbox emails to load (0: backend default)
	InboxSize int `yaml:"inbox_size"`

	// SecureCookies marks the token cookie Secure (enable behind HTTPS)
	SecureCookies bool `yaml:"secure_cookies"`

	// SessionIdleTimeout drops dashboard sessions that were not used for this long
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Timeout: DefaultAPITimeout,
		},
		Site: SiteConfig{
			Addr:               DefaultSiteAddr,
			SessionIdleTimeout: DefaultSessionIdleTimeout,
		},
		TokenStore: tokenstore.Config{
			Type: tokenstore.TypeFile,
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    DefaultMetricsAddr,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := cfg.FromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files (default: ./.env)
// without overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// FromEnv overlays environment variables onto c.
func (c *Config) FromEnv() error {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.URL = v
	} else if v := os.Getenv(EnvLegacyAPIURL); v != "" {
		c.API.URL = v
	}
	if err := envDuration(EnvAPITimeout, &c.API.Timeout); err != nil {
		return err
	}

	envString(EnvPublicURL, &c.Site.PublicURL)
	envString(EnvSiteAddr, &c.Site.Addr)
	if err := envBool(EnvDemoFallback, &c.Site.DemoFallback); err != nil {
		return err
	}
	if err := envBool(EnvSecureCookies, &c.Site.SecureCookies); err != nil {
		return err
	}

	envString(EnvTokenStore, &c.TokenStore.Type)
	envString(EnvTokenFile, &c.TokenStore.FilePath)
	envString(EnvRedisURL, &c.TokenStore.Redis.URL)
	envString(EnvRedisKeyPrefix, &c.TokenStore.Redis.KeyPrefix)
	if err := envDuration(EnvTokenTTL, &c.TokenStore.Redis.TTL); err != nil {
		return err
	}

	envString(EnvLogLevel, &c.Log.Level)
	envString(EnvLogFormat, &c.Log.Format)
	envString(EnvMetricsAddr, &c.Metrics.Addr)
	return nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.API.URL != "" {
		if err := validateHTTPURL(c.API.URL); err != nil {
			return fmt.Errorf("invalid API URL: %w", err)
		}
	}
	if c.Site.PublicURL != "" {
		if err := validateHTTPURL(c.Site.PublicURL); err != nil {
			return fmt.Errorf("invalid public URL: %w", err)
		}
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("API timeout must not be negative, got %s", c.API.Timeout)
	}
	if c.Site.InboxSize < 0 {
		return fmt.Errorf("inbox size must not be negative, got %d", c.Site.InboxSize)
	}
	if c.Site.SessionIdleTimeout < 0 {
		return fmt.Errorf("session idle timeout must not be negative, got %s", c.Site.SessionIdleTimeout)
	}

	switch c.TokenStore.Type {
	case "", tokenstore.TypeMemory, tokenstore.TypeFile, tokenstore.TypeRedis:
	default:
		return fmt.Errorf("invalid token store %q, must be one of: memory, file, redis", c.TokenStore.Type)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("invalid log format %q, must be one of: text, json", c.Log.Format)
	}
	return nil
}

// Endpoint returns the resolver input for commands that have no origin of
// their own (CLI and MCP server).
func (c *Config) Endpoint() endpoint.Config {
	return endpoint.Config{Override: c.API.URL}
}

// SiteEndpoint returns the resolver input for the site. Its origin is the
// scheme and host of the public URL.
func (c *Config) SiteEndpoint() endpoint.Config {
	return endpoint.Config{
		Override: c.API.URL,
		Origin:   Origin(c.Site.PublicURL),
	}
}

// Origin reduces raw to scheme://host[:port]. Anything unparsable yields "".
func Origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = parsed
	return nil
}
