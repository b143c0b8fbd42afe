// Package logging builds the process logger from the log settings of
// the CLI.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var levelMap = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Levels lists the accepted level names.
func Levels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ParseLevel maps a level name to a slog level. Unknown names give WARN.
func ParseLevel(name string) slog.Level {
	level, ok := levelMap[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return slog.LevelWarn
	}
	return level
}

// Options selects where and how logs are written.
type Options struct {
	Level string
	// Format is "text" or "json". Anything else is text.
	Format string
	// File, when set, receives every record as JSON in addition to Output.
	File string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// New builds a logger. The returned closer releases the log file, if any,
// and is never nil.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	level := ParseLevel(opts.Level)
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		closer = f
		fileHandler := slog.NewJSONHandler(f, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		})
		handler = &multiHandler{handlers: []slog.Handler{fileHandler, handler}}
	}

	logger := slog.New(handler)
	logger.Debug("logging initialized",
		"level", level.String(),
		"format", opts.Format,
		"log_file", opts.File)
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// multiHandler fans records out to several handlers.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
