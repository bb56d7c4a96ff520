// Package logger provides the structured logging wrapper shared by every
// protocol-core package.
package logger

import (
	"go.uber.org/zap"
)

// Logger is the structured logging capability every component depends on.
// Components take a Logger by interface so tests can inject MockLogger
// without pulling in zap's concrete types.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	With(fields ...zap.Field) Logger
	Named(name string) Logger
	Sync() error
}

// ZapLogger adapts *zap.Logger to the Logger interface.
type ZapLogger struct {
	Logger *zap.Logger
}

// NewLogger builds a production zap logger named for the given component.
func NewLogger(name string) (Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{Logger: z.Named(name)}, nil
}

// NewNop returns a Logger that discards everything, the default used by
// components that receive no explicit Logger.
func NewNop() Logger {
	return &ZapLogger{Logger: zap.NewNop()}
}

func (l *ZapLogger) Debug(msg string, fields ...zap.Field) { l.Logger.Debug(msg, fields...) }
func (l *ZapLogger) Info(msg string, fields ...zap.Field)  { l.Logger.Info(msg, fields...) }
func (l *ZapLogger) Warn(msg string, fields ...zap.Field)  { l.Logger.Warn(msg, fields...) }
func (l *ZapLogger) Error(msg string, fields ...zap.Field) { l.Logger.Error(msg, fields...) }

func (l *ZapLogger) With(fields ...zap.Field) Logger {
	return &ZapLogger{Logger: l.Logger.With(fields...)}
}

func (l *ZapLogger) Named(name string) Logger {
	return &ZapLogger{Logger: l.Logger.Named(name)}
}

func (l *ZapLogger) Sync() error { return l.Logger.Sync() }
