// Package zaplog adapts zap loggers to the moderation Logger interface.
package zaplog

import (
	"github.com/goliatone/go-moderation/pkg/types"
	"go.uber.org/zap"
)

// Logger writes moderation log lines through a sugared zap logger. Fields
// are passed as alternating key/value pairs.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New wraps logger. A nil logger produces a no-op adapter.
func New(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{sugar: logger.Named("moderation").Sugar()}
}

var _ types.Logger = (*Logger)(nil)

// Debug implements types.Logger.
func (l *Logger) Debug(msg string, fields ...any) {
	l.sugar.Debugw(msg, fields...)
}

// Info implements types.Logger.
func (l *Logger) Info(msg string, fields ...any) {
	l.sugar.Infow(msg, fields...)
}

// Error implements types.Logger.
func (l *Logger) Error(msg string, err error, fields ...any) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	l.sugar.Errorw(msg, fields...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
