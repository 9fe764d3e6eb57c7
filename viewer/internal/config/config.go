package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultServerURL      = "ws://localhost:4000/graphql"
	DefaultReconnectDelay = 3 * time.Second
	DefaultLogLevel       = "warn"
)

// Config is the top-level viewer configuration file.
type Config struct {
	Viewer ViewerConfig `yaml:"viewer"`
}

// ViewerConfig holds all viewer settings.
type ViewerConfig struct {
	// ServerURL is the websocket endpoint (ws:// or wss://).
	ServerURL string `yaml:"server_url"`

	// HTTPURL is the one-shot endpoint. Derived from ServerURL when empty.
	HTTPURL string `yaml:"http_url"`

	// ReconnectDelay is the wait before each reconnect attempt.
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`

	// MaxReconnectDelay above ReconnectDelay enables exponential backoff.
	MaxReconnectDelay time.Duration `yaml:"max_reconnect_delay"`

	LogLevel string `yaml:"log_level"`
}

type envOverrides struct {
	ServerURL *string `envconfig:"CHIRPWALL_SERVER_URL"`
	LogLevel  *string `envconfig:"CHIRPWALL_VIEWER_LOG_LEVEL"`
}

// Load reads the viewer config at path, fills defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("viewer config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("viewer config: parse yaml: %w", err)
	}
	return finish(cfg)
}

// LoadOrDefault loads path, falling back to defaults when the file is
// missing and was not named explicitly.
func LoadOrDefault(path string, explicit bool) (*Config, error) {
	cfg, err := Load(path)
	if err != nil && !explicit && errors.Is(err, os.ErrNotExist) {
		return finish(defaults())
	}
	return cfg, err
}

func finish(cfg *Config) (*Config, error) {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("viewer config: env: %w", err)
	}
	if env.ServerURL != nil {
		cfg.Viewer.ServerURL = *env.ServerURL
	}
	if env.LogLevel != nil {
		cfg.Viewer.LogLevel = *env.LogLevel
	}

	v := &cfg.Viewer
	if v.HTTPURL == "" {
		v.HTTPURL = httpURL(v.ServerURL)
	}
	if v.MaxReconnectDelay == 0 {
		v.MaxReconnectDelay = v.ReconnectDelay
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("viewer config: %w", err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Viewer: ViewerConfig{
			ServerURL:      DefaultServerURL,
			ReconnectDelay: DefaultReconnectDelay,
			LogLevel:       DefaultLogLevel,
		},
	}
}

// httpURL maps ws:// to http:// and wss:// to https://.
func httpURL(ws string) string {
	switch {
	case strings.HasPrefix(ws, "ws://"):
		return "http://" + strings.TrimPrefix(ws, "ws://")
	case strings.HasPrefix(ws, "wss://"):
		return "https://" + strings.TrimPrefix(ws, "wss://")
	}
	return ws
}

func validate(cfg *Config) error {
	v := cfg.Viewer
	u, err := url.Parse(v.ServerURL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("server_url must be a ws:// or wss:// URL, got %q", v.ServerURL)
	}
	h, err := url.Parse(v.HTTPURL)
	if err != nil || (h.Scheme != "http" && h.Scheme != "https") || h.Host == "" {
		return fmt.Errorf("http_url must be an http:// or https:// URL, got %q", v.HTTPURL)
	}
	if v.ReconnectDelay <= 0 {
		return fmt.Errorf("reconnect_delay must be positive, got %s", v.ReconnectDelay)
	}
	if v.MaxReconnectDelay < v.ReconnectDelay {
		return fmt.Errorf("max_reconnect_delay (%s) must not be below reconnect_delay (%s)",
			v.MaxReconnectDelay, v.ReconnectDelay)
	}
	if _, err := v.level(); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level.
func (v ViewerConfig) Level() slog.Level {
	l, _ := v.level()
	return l
}

func (v ViewerConfig) level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(v.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", v.LogLevel, err)
	}
	return l, nil
}
