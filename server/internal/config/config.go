package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Default values for the server configuration.
const (
	DefaultHTTPPort      = 4000
	DefaultGRPCPort      = 50051
	DefaultPath          = "/graphql"
	DefaultAllowedOrigin = "http://localhost:5173"
	DefaultMaxBodyBytes  = 1 << 20
	DefaultSendBuffer    = 256
	DefaultLogLevel      = "info"
)

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml. The `viewer:` key in the same file is ignored.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort serves one-shot requests, upgrades, health and metrics.
	HTTPPort int `yaml:"http_port"`

	// GRPCPort is the port of the gRPC board service. 0 disables it.
	GRPCPort int `yaml:"grpc_port"`

	// Path is the service path for POST and websocket upgrades.
	Path string `yaml:"path"`

	// AllowedOrigin is sent as Access-Control-Allow-Origin.
	AllowedOrigin string `yaml:"allowed_origin"`

	// MaxBodyBytes caps one-shot request bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// SendBuffer is the per-connection push queue depth. A viewer that falls
	// this far behind is disconnected.
	SendBuffer int `yaml:"send_buffer"`

	// LogLevel is one of: debug | info | warn | error. Hot-reloadable.
	LogLevel string `yaml:"log_level"`

	// SeedWelcome creates a welcome message from "System" at startup.
	SeedWelcome bool `yaml:"seed_welcome"`

	// Webhooks receive every created message. Hot-reloadable.
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// envOverrides are applied after the file. Unset variables leave the file
// value alone.
type envOverrides struct {
	HTTPPort      *int    `envconfig:"CHIRPWALL_HTTP_PORT"`
	GRPCPort      *int    `envconfig:"CHIRPWALL_GRPC_PORT"`
	AllowedOrigin *string `envconfig:"CHIRPWALL_ALLOWED_ORIGIN"`
	LogLevel      *string `envconfig:"CHIRPWALL_LOG_LEVEL"`
}

// Load reads and parses the config file at path, returning the server
// configuration. Missing fields are filled with defaults, then environment
// overrides are applied, then the result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}
	return finish(cfg)
}

// FromEnv returns the defaults with environment overrides applied. Used when
// no config file exists.
func FromEnv() (*Config, error) {
	return finish(defaults())
}

// LoadOrDefault loads path. If the file does not exist and explicit is
// false, it falls back to FromEnv.
func LoadOrDefault(path string, explicit bool) (*Config, error) {
	cfg, err := Load(path)
	if err != nil && !explicit && errors.Is(err, os.ErrNotExist) {
		slog.Info("config: file not found, using defaults", "path", path)
		return FromEnv()
	}
	return cfg, err
}

func finish(cfg *Config) (*Config, error) {
	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:      DefaultHTTPPort,
			GRPCPort:      DefaultGRPCPort,
			Path:          DefaultPath,
			AllowedOrigin: DefaultAllowedOrigin,
			MaxBodyBytes:  DefaultMaxBodyBytes,
			SendBuffer:    DefaultSendBuffer,
			LogLevel:      DefaultLogLevel,
		},
	}
}

func applyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return fmt.Errorf("env overrides: %w", err)
	}
	if env.HTTPPort != nil {
		cfg.Server.HTTPPort = *env.HTTPPort
	}
	if env.GRPCPort != nil {
		cfg.Server.GRPCPort = *env.GRPCPort
	}
	if env.AllowedOrigin != nil {
		cfg.Server.AllowedOrigin = *env.AllowedOrigin
	}
	if env.LogLevel != nil {
		cfg.Server.LogLevel = *env.LogLevel
	}
	return nil
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	if s.GRPCPort < 0 || s.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port %d is out of range [0, 65535]", s.GRPCPort)
	}
	if s.GRPCPort != 0 && s.GRPCPort == s.HTTPPort {
		return fmt.Errorf("server.grpc_port and server.http_port are both %d", s.HTTPPort)
	}
	if !strings.HasPrefix(s.Path, "/") {
		return fmt.Errorf("server.path %q must start with /", s.Path)
	}
	if s.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}
	if s.SendBuffer <= 0 {
		return fmt.Errorf("server.send_buffer must be positive")
	}
	if _, err := ParseLevel(s.LogLevel); err != nil {
		return err
	}
	for i, wh := range s.Webhooks {
		switch wh.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("server.webhooks[%d].type %q unknown: want slack|teams|http", i, wh.Type)
		}
		if wh.URLEnv == "" {
			return fmt.Errorf("server.webhooks[%d].url_env is required", i)
		}
	}
	return nil
}

// ParseLevel maps a log_level string to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log_level %q unknown: want debug|info|warn|error", s)
	}
}

// Level returns the parsed log level. Validated configs never fail here.
func (s ServerConfig) Level() slog.Level {
	l, _ := ParseLevel(s.LogLevel)
	return l
}
