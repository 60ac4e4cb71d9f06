// Package observability builds the logger, Prometheus collector and tracer
// provider used by the sync hub and the monitoring service.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap logger whose level can be changed at runtime through
// the returned AtomicLevel. Production environments log JSON, everything else
// logs human-readable console output.
func NewLogger(level, environment string) (*zap.Logger, zap.AtomicLevel, error) {
	atom := zap.NewAtomicLevel()
	if err := SetLevel(atom, level); err != nil {
		return nil, atom, err
	}

	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = atom

	logger, err := cfg.Build()
	if err != nil {
		return nil, atom, fmt.Errorf("build logger: %w", err)
	}
	return logger, atom, nil
}

// SetLevel parses level ("debug", "info", ...) into atom. An empty level means info.
func SetLevel(atom zap.AtomicLevel, level string) error {
	if level == "" {
		atom.SetLevel(zapcore.InfoLevel)
		return nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	atom.SetLevel(lvl)
	return nil
}
