// Package mflog provides the structured logging conventions shared by every
// analytical component. The core never reads the environment directly —
// level and environment are passed in by the embedding application (the CLI,
// a test, or any other host), keeping the library free of global state.
package mflog

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level mirrors zerolog's levels without forcing callers to import zerolog
// just to pick one.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// New creates a configured root logger. Pretty console output is used for
// "development", structured JSON otherwise.
func New(environment string, level Level) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	parsed := parseLevel(level)

	if environment == "development" {
		return zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}).Level(parsed).With().
			Timestamp().
			Str("service", "marketflow-vpa").
			Logger()
	}

	return zerolog.New(os.Stdout).Level(parsed).With().
		Timestamp().
		Str("service", "marketflow-vpa").
		Logger()
}

// Component returns a child logger tagged with the owning component, the
// pattern every analyzer uses to derive its logger from the facade's root.
func Component(root zerolog.Logger, name string) zerolog.Logger {
	return root.With().Str("component", name).Logger()
}

// LogPerformance records a timed operation's outcome at Info (or Error on
// failure), the shape every analysis phase reports with.
func LogPerformance(logger zerolog.Logger, operation string, start time.Time, success bool) {
	event := logger.Info()
	if !success {
		event = logger.Error()
	}
	event.
		Str("operation", operation).
		Dur("duration", time.Since(start)).
		Bool("success", success).
		Msg("phase completed")
}

// LogError logs an error with structured context fields attached.
func LogError(logger zerolog.Logger, err error, message string, fields map[string]interface{}) {
	event := logger.Error().Err(err)
	for key, value := range fields {
		switch v := value.(type) {
		case string:
			event = event.Str(key, v)
		case int:
			event = event.Int(key, v)
		case int64:
			event = event.Int64(key, v)
		case float64:
			event = event.Float64(key, v)
		case bool:
			event = event.Bool(key, v)
		case time.Duration:
			event = event.Dur(key, v)
		default:
			event = event.Interface(key, v)
		}
	}
	event.Msg(message)
}

func parseLevel(level Level) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
