package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"execdoc/internal/engine/parser"

	"github.com/gobwas/glob"
)

var knownModules = []string{"data", "json", "math", "plot", "time"}

func validate(cfg *Config) error {
	for _, check := range []func(*Config) error{
		validateVersion,
		validateRuntime,
		validateServer,
		validateObservability,
		validateDatabase,
		validateWatch,
		validateLogging,
	} {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateRuntime(cfg *Config) error {
	for _, lang := range cfg.Runtime.Languages {
		if !parser.IsSupportedLanguage(lang) {
			return fmt.Errorf("runtime.languages: %q is not supported; supported: %s",
				lang, strings.Join(parser.Languages, ", "))
		}
	}
	for _, mod := range cfg.Runtime.Modules {
		if !slices.Contains(knownModules, mod) {
			return fmt.Errorf("runtime.modules: unknown module %q; known: %s",
				mod, strings.Join(knownModules, ", "))
		}
	}
	return nil
}

func validateServer(cfg *Config) error {
	transport := strings.ToLower(strings.TrimSpace(cfg.Server.Transport))
	if transport != "stdio" && transport != "http" {
		return fmt.Errorf("server.transport must be one of: stdio, http")
	}
	cfg.Server.Transport = transport
	if transport == "http" && strings.TrimSpace(cfg.Server.Address) == "" {
		return fmt.Errorf("server.address is required for http transport")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Observability.Port < 0 || cfg.Observability.Port > 65535 {
		return fmt.Errorf("observability.port must be between 0 and 65535, got %d", cfg.Observability.Port)
	}
	if cfg.Observability.EnableTracing && strings.TrimSpace(cfg.Observability.OTLPEndpoint) == "" {
		return fmt.Errorf("observability.otlp_endpoint is required when tracing is enabled")
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	if cfg.DB.Enabled && strings.TrimSpace(cfg.DB.Path) == "" {
		return fmt.Errorf("db.path must not be empty")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	for _, pattern := range cfg.Watch.Include {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("watch.include: invalid pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func validateLogging(cfg *Config) error {
	_, err := ParseLevel(cfg.Logging.Level)
	return err
}

// ParseLevel maps a logging.level value to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return l, nil
}
