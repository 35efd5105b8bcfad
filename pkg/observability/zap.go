package observability

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type zapLogger struct {
	inner *zap.Logger
}

// NewZap adapts a zap logger to Logger.
func NewZap(inner *zap.Logger) Logger {
	if inner == nil {
		return noopLogger{}
	}
	return zapLogger{inner: inner}
}

// NewZapProduction builds a JSON zap logger at the requested level
// ("debug", "info" or "error").
func NewZapProduction(level string) (Logger, *zap.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	inner, err := cfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("build zap logger: %w", err)
	}
	return NewZap(inner), inner, nil
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

func (l zapLogger) Debug(msg string, fields ...Field) { l.inner.Debug(msg, zapFields(fields)...) }
func (l zapLogger) Info(msg string, fields ...Field)  { l.inner.Info(msg, zapFields(fields)...) }
func (l zapLogger) Error(msg string, fields ...Field) { l.inner.Error(msg, zapFields(fields)...) }

func zapFields(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}
