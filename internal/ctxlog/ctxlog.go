// Package ctxlog carries a slog.Logger through context.Context and builds
// the command-line logger.
package ctxlog

import (
	"context"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

type key struct{}

var loggerKey = key{}

var discard = slog.New(slog.DiscardHandler)

// WithLogger returns a new context with the provided logger embedded.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the slog.Logger from a context. Without one it
// returns a logger that drops every record.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return discard
}

// NewCommandLogger creates the structured logger for CLI runs. When w is a
// terminal it uses slog.TextHandler for human-readable output; when piped or
// redirected it uses slog.JSONHandler. Only warnings and errors are emitted
// unless verbose is set.
func NewCommandLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		handler = slog.NewTextHandler(w, options)
	} else {
		handler = slog.NewJSONHandler(w, options)
	}
	return slog.New(handler)
}
