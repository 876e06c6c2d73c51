// Package obs contains observability utilities such as logging and metrics.
package obs

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the global structured logger used by the service. It discards
// output until InitLogger runs, so packages may log from tests.
var Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))

// InitLogger initializes the global Logger with a JSON handler on stdout.
func InitLogger(level string) {
	Logger = NewLogger(os.Stdout, level)
}

func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else
// is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
