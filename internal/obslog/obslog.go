// Package obslog configures the process-wide slog handler from Config.
package obslog

import (
	"log/slog"
	"os"
)

// Options controls handler construction. Mirrors the fields the gateway
// actually reads off Config so obslog has no import cycle back onto config.
type Options struct {
	Level      string // debug|info|warn|error
	JSONFormat bool
}

// Setup installs the process-wide default slog handler and returns the
// configured logger for callers that want an explicit reference.
func Setup(opts Options) *slog.Logger {
	level := parseLevel(opts.Level)

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.JSONFormat {
		handler = slog.NewJSONHandler(os.Stdout, handlerOpts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, handlerOpts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch s {
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
