package logging

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Logger is the global logger instance. Init replaces it; the zero setup
// writes to stderr so packages can log before main wires anything.
var Logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      time.RFC3339,
	Level:           log.InfoLevel,
})

// Init configures the global logger. Debug enables debug-level output.
func Init(debug bool) {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	Logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           level,
	})
}

// Debug logs a debug message with optional key/value pairs.
func Debug(msg string, keyvals ...interface{}) {
	Logger.Debug(msg, keyvals...)
}

// Info logs an info message with optional key/value pairs.
func Info(msg string, keyvals ...interface{}) {
	Logger.Info(msg, keyvals...)
}

// Warn logs a warning message with optional key/value pairs.
func Warn(msg string, keyvals ...interface{}) {
	Logger.Warn(msg, keyvals...)
}

// Error logs an error message with optional key/value pairs.
func Error(msg string, keyvals ...interface{}) {
	Logger.Error(msg, keyvals...)
}
