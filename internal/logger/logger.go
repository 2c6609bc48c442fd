package logger

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// zapLogger wraps a *zap.SugaredLogger and implements Logger.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// Ensure zapLogger satisfies Logger.
var _ Logger = (*zapLogger)(nil)

// Debug logs at DebugLevel. keysAndValues are alternating key/value pairs.
func (l *zapLogger) Debug(msg string, keysAndValues ...any) {
	l.sugar.Debugw(msg, keysAndValues...)
}

// Info logs at InfoLevel.
func (l *zapLogger) Info(msg string, keysAndValues ...any) {
	l.sugar.Infow(msg, keysAndValues...)
}

// Warn logs at WarnLevel.
func (l *zapLogger) Warn(msg string, keysAndValues ...any) {
	l.sugar.Warnw(msg, keysAndValues...)
}

// Error logs at ErrorLevel.
func (l *zapLogger) Error(msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// Option adjusts logger construction.
type Option func(*settings)

type settings struct {
	level     zapcore.Level
	file      string
	maxSizeKB int
}

// WithLevel sets the minimum level ("debug", "info", "warn", "error").
func WithLevel(level string) Option {
	return func(s *settings) {
		if parsed, err := zapcore.ParseLevel(level); err == nil {
			s.level = parsed
		}
	}
}

// WithFile adds a log file sink, rotated to a .old sibling once it exceeds
// maxSizeKB kilobytes.
func WithFile(path string, maxSizeKB int) Option {
	return func(s *settings) {
		s.file = path
		s.maxSizeKB = maxSizeKB
	}
}

// globalSugar holds the SugaredLogger for easy global use.
var globalSugar *zap.SugaredLogger

// Init creates the process logger: a colored console core on stderr plus,
// when WithFile is given, a file core in the legacy line format
// "[YYYY-MM-DD HH:MM:SS] (LEVEL) - message". Call this once at startup.
func Init(opts ...Option) (Logger, error) {
	s := settings{level: zapcore.InfoLevel}
	for _, opt := range opts {
		opt(&s)
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleCfg),
			zapcore.Lock(os.Stderr),
			s.level,
		),
	}

	if s.file != "" {
		sink, err := newRotatingSink(s.file, int64(s.maxSizeKB)*1024)
		if err != nil {
			return nil, fmt.Errorf("open log file %q: %w", s.file, err)
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(fileEncoderConfig()),
			sink,
			s.level,
		))
	}

	zapLog := zap.New(zapcore.NewTee(cores...))
	sugar := zapLog.Sugar()
	globalSugar = sugar

	return &zapLogger{sugar: sugar}, nil
}

// fileEncoderConfig renders "[2020-06-15 21:00:00] (INFO) - message".
func fileEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.ConsoleSeparator = " "
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("[" + t.Format("2006-01-02 15:04:05") + "]")
	}
	cfg.EncodeLevel = func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("(" + level.CapitalString() + ") -")
	}
	return cfg
}

// Cleanup flushes any buffered log entries. Call at program exit.
func Cleanup() {
	if globalSugar != nil {
		_ = globalSugar.Sync()
	}
}

// Global returns the Logger created by Init(), for use in libraries.
func Global() Logger {
	if globalSugar == nil {
		log, _ := Init()
		return log
	}
	return &zapLogger{sugar: globalSugar}
}
