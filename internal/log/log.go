// Package log configures the rotating JSON file logger the server writes
// its request and turn records to.
package log

import (
	"log/slog"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	initOnce sync.Once
	logger   *slog.Logger
)

// Setup builds a slog logger writing JSON records to a rotating log file.
// Safe to call more than once; only the first call's settings win.
func Setup(logFile string, debug bool) *slog.Logger {
	initOnce.Do(func() {
		logRotator := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // MB
			MaxBackups: 0,
			MaxAge:     30, // days
			Compress:   false,
		}

		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}

		logger = slog.New(slog.NewJSONHandler(logRotator, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		}))
	})
	return logger
}

// Initialized reports whether Setup has run.
func Initialized() bool {
	return logger != nil
}
