// Package observability defines the logging primitives shared by the SDK and its binaries.
package observability

import (
	"sync/atomic"
	"time"
)

// Logger captures structured logging behaviours shared across layers.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// Field represents a key/value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

// String builds a string field.
func String(key, value string) Field { return Field{Key: key, Value: value} }

// Int builds an integer field.
func Int(key string, value int) Field { return Field{Key: key, Value: value} }

// Duration builds a duration field.
func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }

// Err builds the conventional "error" field. A nil error yields an empty value.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: ""}
	}
	return Field{Key: "error", Value: err.Error()}
}

type holder struct{ logger Logger }

var defaultLogger atomic.Pointer[holder]

func init() {
	defaultLogger.Store(&holder{logger: noopLogger{}})
}

// SetLogger overrides the global logger. Passing nil restores the noop logger.
func SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	defaultLogger.Store(&holder{logger: logger})
}

// Log returns the current global logger instance.
func Log() Logger {
	return defaultLogger.Load().logger
}

// Or returns logger when set, otherwise the global logger.
func Or(logger Logger) Logger {
	if logger != nil {
		return logger
	}
	return Log()
}

// Noop returns a logger that discards everything.
func Noop() Logger { return noopLogger{} }

type noopLogger struct{}

func (noopLogger) Debug(string, ...Field) {}
func (noopLogger) Info(string, ...Field)  {}
func (noopLogger) Error(string, ...Field) {}
