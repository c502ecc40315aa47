package app

import (
	"io"
	"log/slog"
)

// newLogger builds the process logger from the already-validated
// -log-level and -log-format flags. It never touches slog's global
// default, so tests can run isolated instances against their own
// buffers. Unrecognized levels fall back to info, the map's zero value.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	levels := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	opts := &slog.HandlerOptions{Level: levels[levelStr]}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
