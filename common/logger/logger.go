package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Package logger provides the leveled logging facade used across the
// system. It is backed by zap but exposes printf-style helpers so call
// sites stay terse.

// LogLevel represents log severity levels
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu    sync.RWMutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base  = newSugared()
)

func newSugared() *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	l, err := cfg.Build(zap.AddCallerSkip(2))
	if err != nil {
		// zap only fails on a bad config, and ours is fixed
		l = zap.NewNop()
	}
	return l.Sugar()
}

// SetLevel sets the minimum log level
func SetLevel(l LogLevel) {
	switch l {
	case LevelDebug:
		level.SetLevel(zapcore.DebugLevel)
	case LevelInfo:
		level.SetLevel(zapcore.InfoLevel)
	case LevelWarn:
		level.SetLevel(zapcore.WarnLevel)
	case LevelError:
		level.SetLevel(zapcore.ErrorLevel)
	}
}

// SetLevelByName sets the level from a config string such as "debug".
// Unknown names leave the level at info.
func SetLevelByName(name string) {
	switch name {
	case "debug":
		SetLevel(LevelDebug)
	case "warn", "warning":
		SetLevel(LevelWarn)
	case "error":
		SetLevel(LevelError)
	default:
		SetLevel(LevelInfo)
	}
}

// Replace swaps the backing logger. Intended for tests that want to
// capture output via zaptest or an observer core.
func Replace(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l.Sugar()
}

func sugar() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Debugf logs a debug message
func Debugf(format string, args ...interface{}) {
	sugar().Debugf(format, args...)
}

// Infof logs an info message
func Infof(format string, args ...interface{}) {
	sugar().Infof(format, args...)
}

// Warnf logs a warning message
func Warnf(format string, args ...interface{}) {
	sugar().Warnf(format, args...)
}

// Errorf logs an error message
func Errorf(format string, args ...interface{}) {
	sugar().Errorf(format, args...)
}

// Sync flushes buffered log entries. Call on shutdown.
func Sync() {
	_ = sugar().Sync()
}
