// Package logging builds the logrus loggers used across qxhr.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Level is a minimum log level name.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Config describes a logger.
type Config struct {
	Level  Level
	Format string // "json" or "text"
	Output io.Writer
	// TimeFormat defaults to RFC3339.
	TimeFormat string
}

// DefaultConfig logs warnings and above as text to stderr.
func DefaultConfig() Config {
	return Config{
		Level:      LevelWarn,
		Format:     "text",
		Output:     os.Stderr,
		TimeFormat: time.RFC3339,
	}
}

// ParseLevel maps a level name to a logrus level. Unknown names map to
// warn.
func ParseLevel(name string) logrus.Level {
	switch Level(strings.ToLower(strings.TrimSpace(name))) {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelInfo:
		return logrus.InfoLevel
	case LevelError:
		return logrus.ErrorLevel
	case "trace":
		return logrus.TraceLevel
	default:
		return logrus.WarnLevel
	}
}

// New returns a configured logger.
func New(config Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(ParseLevel(string(config.Level)))

	timeFormat := config.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	if config.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timeFormat})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: timeFormat,
			FullTimestamp:   true,
		})
	}

	if config.Output != nil {
		logger.SetOutput(config.Output)
	} else {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}
