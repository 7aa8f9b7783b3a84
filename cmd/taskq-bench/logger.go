package main

import (
	"fmt"

	lg "github.com/Andrej220/go-utils/zlog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// zlogger exposes a zap logger as a zlog.ZLogger, so the runner's context
// logging shares the command's level and encoding.
type zlogger struct{ l *zap.Logger }

var _ lg.ZLogger = zlogger{}

func (z zlogger) Debug(msg string, fields ...lg.Field) { z.l.Debug(msg, fields...) }
func (z zlogger) Info(msg string, fields ...lg.Field)  { z.l.Info(msg, fields...) }
func (z zlogger) Warn(msg string, fields ...lg.Field)  { z.l.Warn(msg, fields...) }
func (z zlogger) Error(msg string, fields ...lg.Field) { z.l.Error(msg, fields...) }
func (z zlogger) Sync() error                          { return z.l.Sync() }

func (z zlogger) With(fields ...lg.Field) lg.ZLogger {
	return zlogger{z.l.With(fields...)}
}
