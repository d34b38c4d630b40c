package pipeline

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the interface used throughout the pipeline for structured,
// leveled logging. Implementations must support key-value pairs so log
// lines carry file paths, chunk indices, and batch identifiers without
// string formatting at call sites.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	SetLevel(level LogLevel)
}

// LogLevel mirrors the teacher's level enum for API compatibility while
// the implementation now defers to zap's core.
type LogLevel int

const (
	LogLevelOff LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LogLevelError:
		return zapcore.ErrorLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelInfo:
		return zapcore.InfoLevel
	case LogLevelDebug:
		return zapcore.DebugLevel
	default:
		return zapcore.FatalLevel + 1 // above all levels: effectively off
	}
}

// zapLogger adapts a *zap.SugaredLogger to the Logger interface, with an
// atomic level so SetLevel can be changed at runtime without reconstructing
// the logger (the pipeline is shared read-only across concurrent stages).
type zapLogger struct {
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

// NewLogger creates a Logger backed by zap, writing structured JSON to
// stderr by default (production config), at the given starting level.
func NewLogger(level LogLevel) Logger {
	atom := zap.NewAtomicLevelAt(level.zapLevel())
	cfg := zap.NewProductionConfig()
	cfg.Level = atom
	zl, err := cfg.Build()
	if err != nil {
		// Fall back to a no-op core rather than panicking; logging must
		// never be fatal to the pipeline.
		zl = zap.NewNop()
	}
	return &zapLogger{sugar: zl.Sugar(), level: atom}
}

func (l *zapLogger) SetLevel(level LogLevel) { l.level.SetLevel(level.zapLevel()) }
func (l *zapLogger) Debug(msg string, kv ...interface{}) { l.sugar.Debugw(msg, kv...) }
func (l *zapLogger) Info(msg string, kv ...interface{})  { l.sugar.Infow(msg, kv...) }
func (l *zapLogger) Warn(msg string, kv ...interface{})  { l.sugar.Warnw(msg, kv...) }
func (l *zapLogger) Error(msg string, kv ...interface{}) { l.sugar.Errorw(msg, kv...) }

// GlobalLogger is the package-level logger used where a caller hasn't
// supplied one explicitly (e.g. provider factories run at init time).
var GlobalLogger Logger = NewLogger(LogLevelInfo)

// SetGlobalLogLevel controls the verbosity of GlobalLogger.
func SetGlobalLogLevel(level LogLevel) {
	GlobalLogger.SetLevel(level)
}
