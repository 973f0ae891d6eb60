package app

import (
	"io"
	"log/slog"

	"github.com/blackwell-systems/orderwatch/internal/config"
)

// newLogger builds the JSON slog logger described by cfg. verbose forces
// debug level. Logs go to w, never to stdout, which carries command output
// and the MCP protocol.
func newLogger(cfg config.Logger, verbose bool, w io.Writer) *slog.Logger {
	level := slog.Level(cfg.Level)
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}))
}
