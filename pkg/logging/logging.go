// Package logging configures the process-wide slog logger for the
// fundwise CLI: colored tint output on a terminal, plain output when
// stderr is redirected.
//
// Usage:
//
//	logging.Setup()                          // level from env
//	logging.SetupWithLevel(slog.LevelDebug)  // explicit override
package logging

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Setup configures the default logger at the level named by
// FUNDWISE_LOG_LEVEL, falling back to LOG_LEVEL (debug, info, warn,
// error; default info).
func Setup() {
	SetupWithLevel(levelFromEnv())
}

// SetupWithLevel configures the default logger at the given level.
func SetupWithLevel(level slog.Level) {
	stderr := os.Stderr
	slog.SetDefault(slog.New(
		tint.NewHandler(stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			NoColor:    !isatty.IsTerminal(stderr.Fd()),
		}),
	))
}

func levelFromEnv() slog.Level {
	name := os.Getenv("FUNDWISE_LOG_LEVEL")
	if name == "" {
		name = os.Getenv("LOG_LEVEL")
	}
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
