package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultFile is read when no --config flag is given.
const DefaultFile = "execdoc.toml"

type Config struct {
	Version       int           `toml:"version"`
	Runtime       Runtime       `toml:"runtime"`
	Server        Server        `toml:"server"`
	Observability Observability `toml:"observability"`
	DB            Database      `toml:"db"`
	Watch         Watch         `toml:"watch"`
	Logging       Logging       `toml:"logging"`
}

type Runtime struct {
	Languages []string `toml:"languages"`
	// Modules restricts the host modules fragments can import.
	Modules []string `toml:"modules"`
}

type Server struct {
	Transport string    `toml:"transport"`
	Address   string    `toml:"address"`
	RateLimit RateLimit `toml:"rate_limit"`
}

type RateLimit struct {
	Enabled           bool `toml:"enabled"`
	RequestsPerMinute int  `toml:"requests_per_minute"`
	Burst             int  `toml:"burst"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	Port          int    `toml:"port"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
	EnableMetrics bool   `toml:"enable_metrics"`
}

type Database struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

type Watch struct {
	Debounce    time.Duration `toml:"debounce"`
	Include     []string      `toml:"include"`
	ExcludeDirs []string      `toml:"exclude_dirs"`
}

type Logging struct {
	Level string `toml:"level"`
}

// Load reads path, applies defaults and environment overrides, and
// validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, err
		}
	}

	applyDefaults(&cfg)
	ApplyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if len(cfg.Runtime.Languages) == 0 {
		cfg.Runtime.Languages = []string{"py", "python"}
	}

	if strings.TrimSpace(cfg.Server.Transport) == "" {
		cfg.Server.Transport = "stdio"
	}
	if strings.TrimSpace(cfg.Server.Address) == "" {
		cfg.Server.Address = "127.0.0.1:8766"
	}
	if cfg.Server.RateLimit.RequestsPerMinute <= 0 {
		cfg.Server.RateLimit.RequestsPerMinute = 600
	}
	if cfg.Server.RateLimit.Burst <= 0 {
		cfg.Server.RateLimit.Burst = 20
	}

	if cfg.Observability.Port == 0 {
		cfg.Observability.Port = 9464
	}

	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = "data/execdoc.db"
	}
	if cfg.DB.BusyTimeout <= 0 {
		cfg.DB.BusyTimeout = 5 * time.Second
	}

	// Default debounce if not set.
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if len(cfg.Watch.Include) == 0 {
		cfg.Watch.Include = []string{"*.json", "*.yaml", "*.yml"}
	}
	if len(cfg.Watch.ExcludeDirs) == 0 {
		cfg.Watch.ExcludeDirs = []string{".git", "node_modules"}
	}

	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
}
