// Package log wraps zap behind a small interface so role contexts can be
// constructed with a real rotating file logger in production and a no-op
// logger in tests.
package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the subset of zap's sugared API the protocol code needs.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Options configures a rotating file logger.
type Options struct {
	FileName   string
	LogLevel   string
	MaxAge     int
	MaxSize    int
	MaxBackups int
	Compress   bool
}

// Option mutates Options.
type Option func(*Options)

// NewOptions builds the default Options, honest about its defaults the
// way the teacher pack's logger constructors are.
func NewOptions(opts ...Option) Options {
	o := Options{
		FileName:   "collagecommit.log",
		LogLevel:   "info",
		MaxAge:     10,
		MaxSize:    50,
		MaxBackups: 3,
		Compress:   true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithFileName overrides the log file path.
func WithFileName(name string) Option {
	return func(o *Options) { o.FileName = name }
}

// WithLogLevel overrides the minimum log level.
func WithLogLevel(level string) Option {
	return func(o *Options) { o.LogLevel = level }
}

var levels = map[string]zapcore.Level{
	"":      zapcore.InfoLevel,
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

type sugarLogger struct {
	*zap.SugaredLogger
}

// New builds a Logger that writes through lumberjack rotation.
func New(opts ...Option) Logger {
	o := NewOptions(opts...)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   o.FileName,
		MaxAge:     o.MaxAge,
		MaxSize:    o.MaxSize,
		MaxBackups: o.MaxBackups,
		Compress:   o.Compress,
	})

	core := zapcore.NewCore(encoder, writer, levels[o.LogLevel])
	return &sugarLogger{zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()}
}

type noop struct{}

func (noop) Debugf(string, ...interface{}) {}
func (noop) Infof(string, ...interface{})  {}
func (noop) Warnf(string, ...interface{})  {}
func (noop) Errorf(string, ...interface{}) {}

// NewNoop returns a Logger that discards everything, for tests.
func NewNoop() Logger { return noop{} }
