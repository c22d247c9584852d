package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: EXECDOC_[SECTION]_[KEY] (e.g., EXECDOC_OBSERVABILITY_PORT).
func ApplyEnvOverrides(cfg *Config) {
	// Runtime
	setEnvList(&cfg.Runtime.Modules, "EXECDOC_RUNTIME_MODULES")

	// Server
	setEnvString(&cfg.Server.Transport, "EXECDOC_SERVER_TRANSPORT")
	setEnvString(&cfg.Server.Address, "EXECDOC_SERVER_ADDRESS")
	setEnvBool(&cfg.Server.RateLimit.Enabled, "EXECDOC_SERVER_RATE_LIMIT_ENABLED")
	setEnvInt(&cfg.Server.RateLimit.RequestsPerMinute, "EXECDOC_SERVER_RATE_LIMIT_REQUESTS_PER_MINUTE")
	setEnvInt(&cfg.Server.RateLimit.Burst, "EXECDOC_SERVER_RATE_LIMIT_BURST")

	// Database
	setEnvBool(&cfg.DB.Enabled, "EXECDOC_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "EXECDOC_DB_PATH")
	setEnvDuration(&cfg.DB.BusyTimeout, "EXECDOC_DB_BUSY_TIMEOUT")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "EXECDOC_WATCH_DEBOUNCE")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "EXECDOC_OBSERVABILITY_ENABLED")
	setEnvInt(&cfg.Observability.Port, "EXECDOC_OBSERVABILITY_PORT")
	setEnvString(&cfg.Observability.OTLPEndpoint, "EXECDOC_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "EXECDOC_OBSERVABILITY_ENABLE_TRACING")
	setEnvBool(&cfg.Observability.EnableMetrics, "EXECDOC_OBSERVABILITY_ENABLE_METRICS")

	// Logging
	setEnvString(&cfg.Logging.Level, "EXECDOC_LOGGING_LEVEL")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		var items []string
		for _, item := range strings.Split(val, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		slog.Debug("applying env override", "key", key, "value", val)
		*target = items
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
