// Package obslog wraps log/slog with the service-name binding pattern the
// rest of the pack uses (see the quantumlayer drift service's
// logger.New(level, format)): one JSON-structured logger per process,
// tagged with the component that owns it.
package obslog

import (
	"log/slog"
	"os"
	"strings"
)

// New builds a JSON slog.Logger at the given level ("debug", "info", "warn",
// "error"; defaults to info) bound with a "component" field.
func New(level, component string) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(level)})
	return slog.New(h).With("component", component)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
