package services

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger defines common logging interface for all services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// ProductionLogger adapts zerolog to the Logger interface.
type ProductionLogger struct {
	logger zerolog.Logger
}

// NewProductionLogger creates a JSON logger writing to out.
func NewProductionLogger(service string, out io.Writer, level zerolog.Level) *ProductionLogger {
	return &ProductionLogger{
		logger: zerolog.New(out).Level(level).With().
			Timestamp().
			Str("service", service).
			Logger(),
	}
}

// NewConsoleLogger creates a human-readable logger for development.
func NewConsoleLogger(service string, out io.Writer, level zerolog.Level) *ProductionLogger {
	console := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	return &ProductionLogger{
		logger: zerolog.New(console).Level(level).With().
			Timestamp().
			Str("service", service).
			Logger(),
	}
}

func (p *ProductionLogger) Info(msg string, keysAndValues ...interface{}) {
	p.logger.Info().Fields(keysAndValues).Msg(msg)
}

func (p *ProductionLogger) Error(msg string, keysAndValues ...interface{}) {
	p.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (p *ProductionLogger) Debug(msg string, keysAndValues ...interface{}) {
	p.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (p *ProductionLogger) Warn(msg string, keysAndValues ...interface{}) {
	p.logger.Warn().Fields(keysAndValues).Msg(msg)
}

// NoOpLogger is a logger that does nothing (for testing)
type NoOpLogger struct{}

func (n *NoOpLogger) Info(msg string, keysAndValues ...interface{})  {}
func (n *NoOpLogger) Error(msg string, keysAndValues ...interface{}) {}
func (n *NoOpLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (n *NoOpLogger) Warn(msg string, keysAndValues ...interface{})  {}

// NewLogger builds a logger from GO_ENV and LOG_LEVEL.
func NewLogger(service string) Logger {
	if os.Getenv("GO_ENV") == "test" {
		return &NoOpLogger{}
	}

	level := parseLevel(os.Getenv("LOG_LEVEL"))
	if strings.EqualFold(os.Getenv("ENV"), "production") {
		return NewProductionLogger(service, os.Stdout, level)
	}
	return NewConsoleLogger(service, os.Stdout, level)
}

func parseLevel(raw string) zerolog.Level {
	if raw == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(raw))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
