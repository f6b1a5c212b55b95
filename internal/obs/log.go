package obs

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	loggerMu sync.Mutex
	logger   *zap.Logger
)

// InitLogger builds the shared service logger. Level is one of
// debug|info|warn|error; format is json or console.
func InitLogger(level, format string) error {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	if strings.EqualFold(format, "console") {
		cfg.Encoding = "console"
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	built, err := cfg.Build()
	if err != nil {
		return err
	}
	loggerMu.Lock()
	logger = built
	loggerMu.Unlock()
	return nil
}

// Logger returns the shared structured logger used across the service.
// It falls back to a no-op logger when InitLogger was never called,
// which keeps library code and tests quiet.
func Logger() *zap.Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

// SetLogger replaces the shared logger. Intended for tests.
func SetLogger(l *zap.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}

// Sync flushes buffered log entries. Safe to call on shutdown.
func Sync() {
	_ = Logger().Sync()
}
