// Package tpplog configures the process-wide slog logger used by the
// cmd/tppcat and cmd/tppview binaries, generalizing the teacher's
// logging.Setup: write text logs to a file when one is given, discard
// everything otherwise, and optionally enable debug level.
package tpplog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// discardHandler is a slog.Handler that never emits anything. See
// https://github.com/golang/go/issues/62005 for why this exists
// instead of a built-in discard handler.
type discardHandler struct {
	slog.JSONHandler
}

func (d *discardHandler) Enabled(context.Context, slog.Level) bool {
	return false
}

// Setup installs the default logger. If logfile is empty, logging is
// discarded entirely. Otherwise logs are written as text to logfile,
// at Info level unless debug is true.
func Setup(logfile string, debug bool) error {
	var l *slog.Logger

	if logfile != "" {
		f, err := os.OpenFile(logfile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("tpplog: couldn't open logfile %q: %w", logfile, err)
		}

		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		l = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	} else {
		l = slog.New(&discardHandler{})
	}

	slog.SetDefault(l)
	return nil
}
