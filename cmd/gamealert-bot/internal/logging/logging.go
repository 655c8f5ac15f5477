// Package logging adapts zerolog to the gamealert.Logger interface.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the structured logger.
type Options struct {
	ServiceName string
	Level       zerolog.Level
	Format      string // "json" (default) or "console"
	Output      io.Writer
}

// Logger writes gamealert log lines through zerolog.
type Logger struct {
	base zerolog.Logger
}

// New creates a logger stamped with the service name.
func New(opts Options) *Logger {
	if opts.Level == zerolog.NoLevel {
		opts.Level = zerolog.InfoLevel
	}

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}
	if opts.Format == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	base := zerolog.New(output).
		With().
		Timestamp().
		Str("service", opts.ServiceName).
		Logger().
		Level(opts.Level)
	return &Logger{base: base}
}

// ParseLevel parses a level name, falling back to info.
func ParseLevel(value string) zerolog.Level {
	levelString := strings.ToLower(strings.TrimSpace(value))
	if levelString == "" {
		return zerolog.InfoLevel
	}
	if lvl, err := zerolog.ParseLevel(levelString); err == nil {
		return lvl
	}
	return zerolog.InfoLevel
}

// Zerolog exposes the underlying logger for structured call sites.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.base
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.base.Debug().Msgf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.base.Info().Msgf(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.base.Warn().Msgf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.base.Error().Msgf(format, args...) }
func (l *Logger) Info(message string)                       { l.base.Info().Msg(message) }
