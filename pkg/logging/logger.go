// Package logging configures zerolog for the catalog packages.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// FromStrings builds a Config from textual settings such as those read
// from configuration files or flags.
func FromStrings(level string, pretty bool) Config {
	cfg := DefaultConfig()
	cfg.Level = LogLevel(level)
	cfg.Pretty = pretty
	return cfg
}

// Setup configures the global zerolog logger.
// Components should create their loggers after Setup.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer = cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	// Create logger with timestamp
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Component names used in the "component" field.
const (
	ComponentProxy       = "catalog-proxy"
	ComponentClient      = "catalog-client"
	ComponentQueryCache  = "query-cache"
	ComponentCatalogPage = "catalog-page"
	ComponentRateLimit   = "rate-limit"
)

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache decisions (warm skipped fresh/in flight, store hits)
//   - Candidate keys built from hover input
//   - Gender transitions and filter resets
//
// Info: Normal operation events
//   - Requests that succeeded after a retry
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Retry attempts
//   - Backing store errors (fallback to origin fetch)
//   - Gated prefetches, low request budget
//   - Failed warms
//
// Error: Error conditions requiring attention
//   - Exhausted retries
//   - Critical request budget
//   - Configuration errors
//
// Context Fields:
//   - component: emitting component (see Component* constants)
//   - key: filter set cache key
//   - endpoint: catalog API path
//   - status: HTTP status code
//   - duration: fetch or request duration
//   - error_class: client, server, rate_limit, network
//   - remaining: requests left in the rate limit window
