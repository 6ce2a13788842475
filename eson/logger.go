package eson

import "sync"

// Fields is a minimal structured field map for logs.
type Fields map[string]any

// Logger is a tiny leveled logger. Provide an adapter around your logging
// stack (see the log/zap and log/logrus packages).
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}

var (
	loggerMu sync.RWMutex
	logger   Logger = NopLogger{}
)

// SetLogger installs the package logger. A nil logger disables logging.
func SetLogger(l Logger) {
	if l == nil {
		l = NopLogger{}
	}
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

// CurrentLogger returns the package logger. It is a no-op logger unless
// SetLogger was called.
func CurrentLogger() Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}
