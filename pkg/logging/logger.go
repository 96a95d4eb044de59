// Package logging configures structured zerolog output for the Animals
// client and its commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs every request and page/chunk step.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs pipeline stages and completed operations.
	LevelInfo LogLevel = "info"

	// LevelWarn logs retries and aborted pages/chunks.
	LevelWarn LogLevel = "warn"

	// LevelError logs fatal API and transport errors only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stdout).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stdout,
	}
}

// Setup builds the logger described by cfg and installs it as the global
// zerolog logger, which component loggers derive from.
func Setup(cfg Config) zerolog.Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.TimeOnly}
	}

	level, err := ParseLevel(string(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel converts a level name to a zerolog.Level. The empty string
// maps to info.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: every physical request, every fetched page, every submitted chunk
// Info:  pipeline stages, fetch/submission summaries, success after retry
// Warn:  5xx retries, page fetch or chunk submission aborted
// Error: unexpected status, retries exhausted, transport failures
//
// Context Fields:
//   - method, uri, params: request identity
//   - status_code, expected_status, response_content: response context
//   - attempt, attempts, max_retries: retry state
//   - page, total_pages, chunk, chunks: pagination and batching position
//   - error_class: client, server, network, unexpected
