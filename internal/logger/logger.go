package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Option adjusts the zap configuration before the logger is built.
type Option func(*zap.Config)

// New builds a zap logger. Production JSON output is the default.
func New(options ...Option) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	for _, option := range options {
		option(&cfg)
	}
	return cfg.Build()
}

// WithLevel sets the minimum level; unknown names fall back to info.
func WithLevel(level string) Option {
	return func(cfg *zap.Config) {
		cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	}
}

// WithDevelopment switches to the human readable console encoder.
func WithDevelopment(dev bool) Option {
	return func(cfg *zap.Config) {
		if !dev {
			return
		}
		level := cfg.Level
		*cfg = zap.NewDevelopmentConfig()
		cfg.Level = level
	}
}

// WithFields attaches fields to every log line.
func WithFields(fields map[string]any) Option {
	return func(cfg *zap.Config) {
		if cfg.InitialFields == nil {
			cfg.InitialFields = map[string]any{}
		}
		for key, value := range fields {
			if key == "" {
				continue
			}
			cfg.InitialFields[key] = value
		}
	}
}

func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
