package config

import (
	"context"
	"log/slog"
)

type contextKey int

const (
	configKey contextKey = iota
	loggerKey
)

// NewContext returns a copy of ctx carrying cfg and logger to the commands.
// A nil logger is not stored.
func NewContext(ctx context.Context, cfg *Config, logger *slog.Logger) context.Context {
	ctx = context.WithValue(ctx, configKey, cfg)
	if logger != nil {
		ctx = context.WithValue(ctx, loggerKey, logger)
	}
	return ctx
}

// FromContext returns the configuration stored by NewContext, or nil.
func FromContext(ctx context.Context) *Config {
	if ctx == nil {
		return nil
	}
	cfg, _ := ctx.Value(configKey).(*Config)
	return cfg
}

// GetLogger returns the logger stored by NewContext. Without one, logs are
// discarded.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
			return l
		}
	}
	return slog.New(slog.DiscardHandler)
}
