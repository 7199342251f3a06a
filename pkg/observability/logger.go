// Package observability wires structured logging and metrics for the
// extraction pipeline: an slog logger configured from settings, and OTel
// instruments exported through a Prometheus scrape endpoint.
package observability

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Log output formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// NewLogger builds an slog logger writing to w at the given level and
// format. Unknown levels fail rather than silently defaulting, since a
// typo'd level in config would otherwise hide the output the user asked for.
func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	parsedLevel, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: parsedLevel}

	var handler slog.Handler

	switch format {
	case LogFormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	case LogFormatText, "":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	return slog.New(handler), nil
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}
