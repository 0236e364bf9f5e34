package logger

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var globalLogger *zap.Logger

// parseLevel maps a LOG_LEVEL value onto a zap level, defaulting to info
func parseLevel(level string) zapcore.Level {
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// Init builds the global logger. The development environment gets a
// colored console encoder, everything else JSON with ISO8601 timestamps.
func Init(level string, environment string) error {
	var config zap.Config
	if environment == "development" {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	config.Level = zap.NewAtomicLevelAt(parseLevel(level))

	logger, err := config.Build(zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	globalLogger = logger
	return nil
}

// Get returns the global logger, or a development logger before Init
func Get() *zap.Logger {
	if globalLogger == nil {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	return globalLogger
}

// Sync flushes buffered entries
func Sync() error {
	if globalLogger != nil {
		return globalLogger.Sync()
	}
	return nil
}

// WithContext returns a logger carrying the run and symbol stored in ctx
func WithContext(ctx context.Context) *zap.Logger {
	logger := Get()
	if runID := GetRunID(ctx); runID != "" {
		logger = logger.With(zap.String("run_id", runID))
	}
	if symbol := GetSymbol(ctx); symbol != "" {
		logger = logger.With(zap.String("symbol", symbol))
	}
	return logger
}

func Debug(msg string, fields ...zap.Field) { Get().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { Get().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { Get().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { Get().Error(msg, fields...) }

// Fatal logs and exits the process
func Fatal(msg string, fields ...zap.Field) { Get().Fatal(msg, fields...) }

// Field shorthands used across the commands and services

func String(key, value string) zap.Field                 { return zap.String(key, value) }
func Strings(key string, values []string) zap.Field      { return zap.Strings(key, values) }
func Int(key string, value int) zap.Field                { return zap.Int(key, value) }
func Bool(key string, value bool) zap.Field              { return zap.Bool(key, value) }
func Duration(key string, value time.Duration) zap.Field { return zap.Duration(key, value) }
func ErrorField(err error) zap.Field                     { return zap.Error(err) }
