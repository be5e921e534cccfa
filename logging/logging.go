// Package logging wraps go.uber.org/zap behind the small structured-logging
// surface zensense's subsystems depend on, mirroring the Logger shape used
// throughout go.viam.com/rdk: leveled, keyword-argument methods plus named
// sub-loggers so each sensor and component can be attributed in output.
package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging surface zensense depends on. Named returns a child
// logger that prefixes every message with name (e.g. the sensor identifier),
// so log lines from concurrent sensors remain attributable.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Named(name string) Logger
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// New builds a production Logger at the requested level.
func New(level zapcore.Level) Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	l, err := cfg.Build()
	if err != nil {
		// Build only fails on a malformed config; ours is static, so fall
		// back to a no-op core rather than panic a caller's process.
		l = zap.NewNop()
	}
	return &zapLogger{sugar: l.Sugar()}
}

func (z *zapLogger) Debugw(msg string, kv ...interface{}) { z.sugar.Debugw(msg, kv...) }
func (z *zapLogger) Infow(msg string, kv ...interface{})  { z.sugar.Infow(msg, kv...) }
func (z *zapLogger) Warnw(msg string, kv ...interface{})  { z.sugar.Warnw(msg, kv...) }
func (z *zapLogger) Errorw(msg string, kv ...interface{}) { z.sugar.Errorw(msg, kv...) }

func (z *zapLogger) Named(name string) Logger {
	return &zapLogger{sugar: z.sugar.Named(name)}
}

// NewTestLogger returns a Logger that writes through t.Log, keeping test
// output quiet outside of -v without losing messages on failure.
func NewTestLogger(t *testing.T) Logger {
	t.Helper()
	logger := zap.New(zaptest{t: t})
	return &zapLogger{sugar: logger.Sugar()}
}

// zaptest is a minimal zapcore.Core that routes entries to testing.T.Log,
// avoiding noisy stdout during `go test`.
type zaptest struct {
	t *testing.T
}

func (z zaptest) Enabled(zapcore.Level) bool { return true }
func (z zaptest) With(fields []zapcore.Field) zapcore.Core {
	return z
}
func (z zaptest) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return ce.AddCore(ent, z)
}
func (z zaptest) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	z.t.Logf("[%s] %s", ent.Level, ent.Message)
	return nil
}
func (z zaptest) Sync() error { return nil }
