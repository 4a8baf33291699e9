// Package logger holds the process-wide structured logger.
//
// Library packages log through Log; it discards everything until Init is
// called, so embedding the engine stays silent by default.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the shared logger. Never nil.
var Log = zap.NewNop()

// Init replaces Log with a logger at the given level ("debug", "info",
// "warn", "error"). development selects zap's human-readable console
// encoder instead of JSON.
func Init(level string, development bool) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("logger: level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("logger: build: %w", err)
	}
	Log = l
	return nil
}

// Set installs l as the shared logger. A nil l restores the no-op logger.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	Log = l
}

// Sync flushes buffered entries. Call before exit.
func Sync() {
	_ = Log.Sync()
}
