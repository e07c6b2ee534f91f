package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
)

// Logger is a type alias for zerolog.Logger.
// We use zerolog directly instead of wrapping it with abstractions.
type Logger = zerolog.Logger

// Config contains logging configuration options.
type Config struct {
	// Level is the log level: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the log format: "json" or "text"
	// Default: "json"
	Format string `yaml:"format"`

	// Async enables non-blocking logging through a ring buffer. Recommended
	// for the worker, which logs on the event hot path.
	// Default: true
	Async bool `yaml:"async"`

	// AsyncBufferSize is the size of the async ring buffer in bytes.
	// Default: 100000 (100KB)
	AsyncBufferSize int `yaml:"async_buffer_size"`

	// AsyncPollInterval is how often the async writer polls for messages,
	// in milliseconds.
	// Default: 100
	AsyncPollInterval int `yaml:"async_poll_interval"`

	// EnableCaller adds caller information (file:line) to logs.
	// Default: false
	EnableCaller bool `yaml:"enable_caller"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		Level:             "info",
		Format:            "json",
		Async:             true,
		AsyncBufferSize:   100000,
		AsyncPollInterval: 100,
		EnableCaller:      false,
	}
}

// NewLoggerFromConfig creates a logger from configuration. When Async is
// enabled, writes go through a diode ring buffer so the event and ticker hot
// paths never block on stderr.
func NewLoggerFromConfig(config Config) Logger {
	level := parseLevel(config.Level)

	var output io.Writer = os.Stderr

	if strings.ToLower(config.Format) == "text" {
		// Human-readable output for development.
		output = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05",
		}
	}

	if config.Async {
		bufferSize := config.AsyncBufferSize
		if bufferSize <= 0 {
			bufferSize = 100000
		}

		pollInterval := config.AsyncPollInterval
		if pollInterval <= 0 {
			pollInterval = 100
		}

		// The diode writer drops old messages when the buffer overflows.
		// We can't use the logger inside its own overflow callback, so the
		// warning goes straight to stderr.
		output = diode.NewWriter(output, bufferSize, time.Duration(pollInterval)*time.Millisecond, func(missed int) {
			if missed > 0 {
				_, _ = os.Stderr.WriteString("WARN: dropped log messages due to full buffer\n")
			}
		})
	}

	ctx := zerolog.New(output).Level(level).With().Timestamp()
	if config.EnableCaller {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// parseLevel returns the zerolog.Level for the given string. It returns
// InfoLevel if the string is not recognized.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithComponent returns a child logger with the component field set.
func WithComponent(logger Logger, component string) Logger {
	return logger.With().Str(FieldComponent, component).Logger()
}

// ForComponent returns a logger configured for a specific component.
// This is the preferred way to create component loggers.
func ForComponent(logger Logger, component string) Logger {
	return WithComponent(logger, component)
}

// ForRoom returns a child logger with the room field set.
func ForRoom(logger Logger, roomID string) Logger {
	return logger.With().Str(FieldRoom, roomID).Logger()
}

// ForRoomComponent returns a logger configured for a room-specific component.
func ForRoomComponent(logger Logger, component, roomID string) Logger {
	return logger.With().
		Str(FieldComponent, component).
		Str(FieldRoom, roomID).
		Logger()
}

// ForInstance returns a logger configured with a ticker instance id.
// Call this early in ticker startup so every log line carries the instance.
func ForInstance(logger Logger, instanceID string) Logger {
	return logger.With().Str(FieldInstance, instanceID).Logger()
}
