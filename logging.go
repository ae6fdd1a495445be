package glyph

import (
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
)

// newDebugLogger builds the colorized handler used when an Engine is
// constructed with WithDebugLogging. tint renders level-colored,
// single-line records, the same shape the rest of the retrieval pack
// uses for local development logging.
func newDebugLogger() *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: slog.LevelDebug,
	}))
}

// traceID is attached to a render's debug log lines so a sequence of
// "compile" / "load" / "render" entries for one request can be
// correlated in aggregated output.
func traceID() string {
	return uuid.NewString()
}

func (e *Engine) logf(msg string, args ...any) {
	if e.logger == nil {
		return
	}
	e.logger.Debug(msg, args...)
}
