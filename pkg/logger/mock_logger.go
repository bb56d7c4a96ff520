package logger

import (
	"sync"

	"go.uber.org/zap"
)

// MockLogger implements Logger for unit testing. It records message text
// only, not fields, which is enough to assert "something was logged at
// this level" without coupling tests to field shapes.
type MockLogger struct {
	mu     sync.Mutex
	Infos  []string
	Debugs []string
	Warns  []string
	Errors []string
}

// NewMockLogger creates a new MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (l *MockLogger) Debug(msg string, fields ...zap.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *MockLogger) Info(msg string, fields ...zap.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *MockLogger) Warn(msg string, fields ...zap.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *MockLogger) Error(msg string, fields ...zap.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

// WarnCount reports how many Warn-level messages were recorded. Safe to
// call while the logger is still in use by other goroutines.
func (l *MockLogger) WarnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Warns)
}

func (l *MockLogger) With(fields ...zap.Field) Logger { return l }

func (l *MockLogger) Named(name string) Logger { return l }

func (l *MockLogger) Sync() error { return nil }
