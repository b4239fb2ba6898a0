package util

import (
	"io"
	"log/slog"
)

type Logger = *slog.Logger

// NewLogger returns a text logger writing to w. The CLI passes stderr, since
// stdout carries the probe status lines.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
