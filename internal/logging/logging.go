// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// ParseLevel maps a configured level name to a slog level. The second result is false for
// "none", which disables logging.
func ParseLevel(name string) (slog.Level, bool, error) {
	switch name {
	case "none":
		return 0, false, nil
	case "error":
		return slog.LevelError, true, nil
	case "warn":
		return slog.LevelWarn, true, nil
	case "info":
		return slog.LevelInfo, true, nil
	case "debug":
		return slog.LevelDebug, true, nil
	default:
		return 0, false, fmt.Errorf("logging: unexpected log level %q", name)
	}
}

// Configure installs the default slog logger for the given level and output.
//
// Valid levels are "none", "error", "warn", "info" and "debug". With an empty logFile the
// logger writes text to stderr, keeping stdout for measurement results; otherwise it writes
// JSON to logFile, which is truncated. The returned file, if not nil, must be closed by the
// caller once logging is done.
func Configure(level, logFile string) (*os.File, error) {
	lvl, enabled, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	if !enabled {
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return nil, nil
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if logFile == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
		return nil, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(f, opts)))

	return f, nil
}
