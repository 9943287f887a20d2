package core

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Logger interface for structured logging
// Implementations can provide custom logging behavior (e.g., integration with logrus, zap, etc.)
type Logger interface {
	// Debug logs a debug message with optional fields
	Debug(msg string, fields ...Field)

	// Info logs an info message with optional fields
	Info(msg string, fields ...Field)

	// Warn logs a warning message with optional fields
	Warn(msg string, fields ...Field)

	// Error logs an error message with optional fields
	Error(msg string, fields ...Field)
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value any
}

// F creates a new Field with the given key and value
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// stampHook adds a millisecond timestamp without touching zerolog's
// package-level TimeFieldFormat.
type stampHook struct{}

func (stampHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	e.Str(zerolog.TimestampFieldName, time.Now().Format(consoleTimeFormat))
}

// ZerologLogger is the default Logger, backed by zerolog.
// Its level can be changed at runtime with SetLevel.
type ZerologLogger struct {
	root atomic.Pointer[zerolog.Logger]
}

var _ Logger = (*ZerologLogger)(nil)

// NewDefaultLogger returns a console logger on stderr at info level.
func NewDefaultLogger() *ZerologLogger {
	return NewZerologLogger(os.Stderr, "info", "console")
}

// NewZerologLogger creates a logger writing to w.
// format is "json" or "console" (human-readable); level is trace|debug|info|warn|error.
func NewZerologLogger(w io.Writer, level, format string) *ZerologLogger {
	if w == nil {
		w = os.Stderr
	}
	if !strings.EqualFold(strings.TrimSpace(format), "json") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat}
	}
	zl := zerolog.New(w).Level(ParseLevel(level)).Hook(stampHook{})
	return NewZerologLoggerFrom(zl)
}

// NewZerologLoggerFrom wraps an existing zerolog.Logger.
func NewZerologLoggerFrom(zl zerolog.Logger) *ZerologLogger {
	l := &ZerologLogger{}
	l.root.Store(&zl)
	return l
}

// SetLevel swaps the minimum level. Safe to call concurrently with logging.
func (l *ZerologLogger) SetLevel(level string) {
	zl := l.root.Load().Level(ParseLevel(level))
	l.root.Store(&zl)
}

// Level returns the current minimum level.
func (l *ZerologLogger) Level() zerolog.Level {
	return l.root.Load().GetLevel()
}

func (l *ZerologLogger) Debug(msg string, fields ...Field) {
	l.log(zerolog.DebugLevel, msg, fields)
}

func (l *ZerologLogger) Info(msg string, fields ...Field) {
	l.log(zerolog.InfoLevel, msg, fields)
}

func (l *ZerologLogger) Warn(msg string, fields ...Field) {
	l.log(zerolog.WarnLevel, msg, fields)
}

func (l *ZerologLogger) Error(msg string, fields ...Field) {
	l.log(zerolog.ErrorLevel, msg, fields)
}

func (l *ZerologLogger) log(level zerolog.Level, msg string, fields []Field) {
	e := l.root.Load().WithLevel(level)
	if e == nil {
		return
	}
	for _, f := range fields {
		switch v := f.Value.(type) {
		case error:
			e.AnErr(f.Key, v)
		case string:
			e.Str(f.Key, v)
		case []byte:
			e.Str(f.Key, string(v))
		case fmt.Stringer:
			e.Stringer(f.Key, v)
		default:
			e.Interface(f.Key, v)
		}
	}
	e.Msg(msg)
}

// ParseLevel converts a level name into a zerolog level. Unknown names map to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO", "":
		return zerolog.InfoLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NoOpLogger is a logger that discards all log messages
// Useful for tests or when logging is not desired
type NoOpLogger struct{}

// NewNoOpLogger creates a new NoOpLogger
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Debug(msg string, fields ...Field) {}
func (l *NoOpLogger) Info(msg string, fields ...Field)  {}
func (l *NoOpLogger) Warn(msg string, fields ...Field)  {}
func (l *NoOpLogger) Error(msg string, fields ...Field) {}
