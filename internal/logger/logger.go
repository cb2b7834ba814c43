// Package logger builds the service's zap logger.
package logger

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level   string // debug, info, warn, error
	Format  string // json or console
	Service string
	Env     string
}

// New builds a structured logger and installs it as the zap global.
func New(cfg Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Encoding = "json"
	if cfg.Format == "console" {
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	if err := zc.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	log, err := zc.Build()
	if err != nil {
		return nil, err
	}
	if cfg.Service != "" {
		log = log.With(zap.String("service", cfg.Service))
	}
	if cfg.Env != "" {
		log = log.With(zap.String("env", cfg.Env))
	}
	zap.ReplaceGlobals(log)
	return log, nil
}

type ctxKey struct{}

// WithContext stores a request scoped logger on ctx.
func WithContext(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// FromContext returns the logger stored by WithContext, or fallback when
// none is present.  A nil fallback yields the zap global.
func FromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if log, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && log != nil {
		return log
	}
	if fallback != nil {
		return fallback
	}
	return zap.L()
}
