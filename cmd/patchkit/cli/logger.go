// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewLogger creates the structured logger for a patch run, writing to
// stderr. Format "text" and "json" select a handler; "auto" (or empty)
// uses slog.TextHandler when stderr is a terminal and slog.JSONHandler
// when it is piped or redirected.
//
// Callers scope the logger with command context via With():
//
//	logger := cli.NewLogger(cfg.SlogLevel(), cfg.Log.Format).With(
//	    "command", "apply",
//	    "plan", planPath,
//	)
func NewLogger(level slog.Level, format string) *slog.Logger {
	return newLogger(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), level, format)
}

func newLogger(w io.Writer, terminal bool, level slog.Level, format string) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	text := format == "text" || (format != "json" && terminal)
	if text {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}
