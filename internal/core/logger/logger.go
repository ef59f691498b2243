package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RayIDField is the log field carrying the request correlation id.
const RayIDField = "ray_id"

var globalLogger *zap.Logger

// Init initializes the global logger.
// For "development" env, it produces pretty console logs.
// For "production" env, it produces JSON logs.
func Init(environment string, level string) error {
	var config zap.Config

	if environment == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	l, err := zapcore.ParseLevel(level)
	if err == nil {
		config.Level = zap.NewAtomicLevelAt(l)
	}

	logger, err := config.Build()
	if err != nil {
		return err
	}

	globalLogger = logger
	return nil
}

// Set replaces the global logger. Tests use it to capture output.
func Set(l *zap.Logger) {
	globalLogger = l
}

// Get returns the global logger instance.
// If not initialized, it returns a no-op logger to prevent panics.
func Get() *zap.Logger {
	if globalLogger == nil {
		return zap.NewNop()
	}
	return globalLogger
}

// ForRequest returns the global logger tagged with the request ray id.
func ForRequest(rayID string) *zap.Logger {
	if rayID == "" {
		return Get()
	}
	return Get().With(zap.String(RayIDField, rayID))
}

// Sync flushes any buffered log entries.
func Sync() {
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
}
