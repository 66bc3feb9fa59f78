package app

import (
	"log/slog"
	"os"
	"strings"
)

// Logger aliases the slog logger threaded through the app's constructors.
type Logger = *slog.Logger

var logLevels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// NewLogger builds the process-wide JSON logger and installs it as the
// slog default. An unrecognized level falls back to info instead of
// failing startup.
func NewLogger(level string) *slog.Logger {
	lvl, ok := logLevels[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		lvl = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: true,
	}))
	slog.SetDefault(log)
	return log
}
