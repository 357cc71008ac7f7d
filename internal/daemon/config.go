// Package daemon assembles and runs the listing service: configuration,
// storage, the model client, the HTTP API, and graceful shutdown.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/listforge/listforge/internal/app/pipeline"
)

// Config is the daemon configuration, loaded from TOML with environment
// overrides for secrets.
type Config struct {
	API     APIConfig      `toml:"api"`
	Store   StoreConfig    `toml:"store"`
	Model   ModelConfig    `toml:"model"`
	Auth    AuthConfig     `toml:"auth"`
	Session SessionConfig  `toml:"session"`
	Costs   pipeline.Costs `toml:"costs"`
}

// APIConfig configures the HTTP listener.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// Addr returns the listen address.
func (c APIConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// StoreConfig configures the ledger database location.
type StoreConfig struct {
	Path string `toml:"path"`
}

// ModelConfig configures the hosted generative model.
type ModelConfig struct {
	Name    string `toml:"name"`
	APIKey  string `toml:"api_key"`
	Timeout string `toml:"timeout"`
	Retries int    `toml:"retries"`
}

// AuthConfig configures token issuance.
type AuthConfig struct {
	Secret   string `toml:"secret"`
	TokenTTL string `toml:"token_ttl"`
}

// SessionConfig configures in-memory workflow lifetime.
type SessionConfig struct {
	IdleTTL string `toml:"idle_ttl"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    8176,
			Metrics: true,
		},
		Store: StoreConfig{
			Path: defaultDataDir(),
		},
		Model: ModelConfig{
			Name:    "gemini-2.0-flash",
			Timeout: "90s",
			Retries: 2,
		},
		Auth: AuthConfig{
			TokenTTL: "24h",
		},
		Session: SessionConfig{
			IdleTTL: "2h",
		},
		Costs: pipeline.DefaultCosts(),
	}
}

// defaultDataDir returns ~/.listforge, falling back to the working directory.
func defaultDataDir() string {
	if env := os.Getenv("LISTFORGE_HOME"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".listforge"
	}
	return filepath.Join(home, ".listforge")
}

// DefaultConfigPath returns the standard config file location.
func DefaultConfigPath() string {
	return filepath.Join(defaultDataDir(), "config.toml")
}

// Load reads the config file at path, starting from defaults. A missing file
// is not an error. Environment variables override secrets last so they never
// have to live in the file: GEMINI_API_KEY, LISTFORGE_AUTH_SECRET,
// LISTFORGE_PORT.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Model.APIKey = v
	}
	if v := os.Getenv("LISTFORGE_AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("LISTFORGE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid LISTFORGE_PORT %q", v)
		}
		cfg.API.Port = port
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid api port %d", c.API.Port)
	}
	if _, err := c.ModelTimeout(); err != nil {
		return err
	}
	if _, err := c.TokenTTL(); err != nil {
		return err
	}
	if _, err := c.IdleTTL(); err != nil {
		return err
	}
	return nil
}

// ModelTimeout returns the per-call model deadline.
func (c Config) ModelTimeout() (time.Duration, error) {
	return parseDuration(c.Model.Timeout, 90*time.Second, "model.timeout")
}

// TokenTTL returns the auth token lifetime.
func (c Config) TokenTTL() (time.Duration, error) {
	return parseDuration(c.Auth.TokenTTL, 24*time.Hour, "auth.token_ttl")
}

// IdleTTL returns how long an untouched workflow survives.
func (c Config) IdleTTL() (time.Duration, error) {
	return parseDuration(c.Session.IdleTTL, 2*time.Hour, "session.idle_ttl")
}

func parseDuration(s string, def time.Duration, field string) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", field, s)
	}
	return d, nil
}
