package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the global logger instance
var Logger *zap.SugaredLogger

func init() {
	// Safe no-op logger so packages can log before Initialize is called
	Logger = zap.NewNop().Sugar()
}

// Initialize sets up the global logger.
//
// Logs go to stderr so that report output on stdout (generate --stdout)
// stays clean. verbosity is the -v count, see VerbosityToLevel.
func Initialize(jsonOutput bool, verbosity int) error {
	return initialize(os.Stderr, jsonOutput, verbosity)
}

func initialize(w io.Writer, jsonOutput bool, verbosity int) error {
	level := VerbosityToLevel(verbosity)

	if theme := os.Getenv("BZTRIAGE_LOG_THEME"); theme != "" {
		SetTheme(theme)
	}

	var encoder zapcore.Encoder
	if jsonOutput {
		// JSON structured output for machine consumption
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		// Human-readable console output with minimal, calm formatting
		encoder = newMinimalEncoder()
	}

	zapLogger := zap.New(zapcore.NewCore(encoder, zapcore.AddSync(w), level))
	Logger = zapLogger.Sugar()
	return nil
}

// Cleanup flushes any buffered log entries
func Cleanup() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// Infow logs an info message with structured fields
func Infow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Infow(msg, keysAndValues...)
	}
}

// Debugf logs a formatted debug message
func Debugf(format string, args ...interface{}) {
	if Logger != nil {
		Logger.Debugf(format, args...)
	}
}

// Debugw logs a debug message with structured fields
func Debugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Debugw(msg, keysAndValues...)
	}
}
