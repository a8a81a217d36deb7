// Package logging provides categorized logging for localstore, backed by zap.
// Each subsystem logs through a named category so a single store's scan,
// watch, and queue activity can be filtered independently.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot  Category = "boot"  // Registry acquisition, directory bootstrap
	CategoryStore Category = "store" // setItem/getItem/removeItem/clear paths
	CategoryScan  Category = "scan"  // Directory scanner, temp-file sweep
	CategoryWatch Category = "watch" // fsnotify events, suppression, reconciliation
	CategoryQueue Category = "queue" // Per-path operation lanes
)

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	sugared = make(map[Category]*zap.SugaredLogger)
)

// Initialize installs the process-wide logger. Level is one of
// debug/info/warn/error; format is "json" or "console". Call once at
// startup; before Initialize all categories are no-ops.
func Initialize(level, format string) error {
	cfg := zap.NewProductionConfig()
	if format != "json" {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	case "warn", "warning":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		return fmt.Errorf("unknown log level: %q", level)
	}

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	Use(logger)
	return nil
}

// Use replaces the backing logger. Tests pass zaptest.NewLogger(t) here.
func Use(logger *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	root = logger
	sugared = make(map[Category]*zap.SugaredLogger)
}

// Reset reverts to the no-op logger.
func Reset() {
	Use(zap.NewNop())
}

// Sync flushes buffered log entries. Safe to call on the no-op logger.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return root.Sync()
}

// Get returns the sugared logger for a category.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if s, ok := sugared[cat]; ok {
		mu.RUnlock()
		return s
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if s, ok := sugared[cat]; ok {
		return s
	}
	s := root.Named(string(cat)).Sugar()
	sugared[cat] = s
	return s
}

// Printf-style helpers preserving call-site brevity for the hot categories.

func Boot(format string, args ...interface{})       { Get(CategoryBoot).Infof(format, args...) }
func Store(format string, args ...interface{})      { Get(CategoryStore).Infof(format, args...) }
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debugf(format, args...) }
func Scan(format string, args ...interface{})       { Get(CategoryScan).Infof(format, args...) }
func ScanDebug(format string, args ...interface{})  { Get(CategoryScan).Debugf(format, args...) }
func Watch(format string, args ...interface{})      { Get(CategoryWatch).Infof(format, args...) }
func WatchDebug(format string, args ...interface{}) { Get(CategoryWatch).Debugf(format, args...) }
func Queue(format string, args ...interface{})      { Get(CategoryQueue).Debugf(format, args...) }
