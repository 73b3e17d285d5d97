// Package logger wraps zap construction with a runtime-adjustable level.
package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger holds the process-wide zap logger. Log is usable right after New
// and is replaced by a production logger on Init.
type Logger struct {
	Log   *zap.Logger
	level zap.AtomicLevel
}

// New returns a Logger backed by a no-op zap logger.
func New() *Logger {
	return &Logger{
		Log:   zap.NewNop(),
		level: zap.NewAtomicLevel(),
	}
}

// Init builds a JSON production logger at the given level
// ("debug", "info", "warn", "error", case-insensitive).
func (l *Logger) Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", level, err)
	}
	l.level = lvl

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	zl, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	l.Log = zl
	return nil
}

// Level reports the current minimum enabled level.
func (l *Logger) Level() string {
	return l.level.String()
}
