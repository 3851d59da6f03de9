// Package logger is the service-wide zerolog setup.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger
type Logger struct {
	zerolog.Logger
}

// New returns a logger tagged with serviceName. Development gets a human
// readable console writer, everything else JSON lines on stdout. An empty or
// unknown level means debug in development and info elsewhere.
func New(serviceName, environment, level string) *Logger {
	var output io.Writer = os.Stdout
	if environment == "development" {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	l := NewWithWriter(output, serviceName)
	l.Logger = l.Logger.Level(ParseLevel(level, environment))
	return l
}

// NewWithWriter creates a logger writing JSON lines to w.
func NewWithWriter(w io.Writer, serviceName string) *Logger {
	return &Logger{
		Logger: zerolog.New(w).With().Timestamp().Str("service", serviceName).Logger(),
	}
}

// ParseLevel maps a configured level name to a zerolog level.
func ParseLevel(level, environment string) zerolog.Level {
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && level != "" {
		return parsed
	}
	if environment == "development" {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// WithComponent returns a logger with the component name attached
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With().Str("component", component).Logger()}
}

// WithJob returns a logger for one run of a background job.
func (l *Logger) WithJob(job, runID string) *Logger {
	return &Logger{Logger: l.Logger.With().Str("job", job).Str("run_id", runID).Logger()}
}
