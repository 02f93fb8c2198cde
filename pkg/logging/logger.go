// Copyright (C) 2026 Enterprise RAG Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging wraps log/slog with the pieces the chatqna CLI needs:
// a compact level type, optional file logging under the user's config
// directory, and an exporter hook so tests and future log shippers can
// observe entries without scraping stderr.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// Log Levels
// =============================================================================

// Level represents log severity, ordered Debug < Info < Warn < Error.
// Setting a minimum level filters out everything below it.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel reads a level name, defaulting to info for anything
// unrecognized.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds logger settings.
type Config struct {
	// Level is the minimum severity emitted.
	Level Level
	// LogDir, when set, enables file logging to
	// {LogDir}/{Service}_{date}.log. A leading ~ expands to the home
	// directory.
	LogDir string
	// Service names the emitting binary in file names and exported
	// entries. Defaults to "chatqna".
	Service string
	// JSON switches console output from text to JSON.
	JSON bool
	// Quiet drops console output entirely, keeping files and exporters.
	Quiet bool
	// Exporter, when set, receives every entry after the built-in
	// handlers.
	Exporter LogExporter
}

// =============================================================================
// Exporters
// =============================================================================

// LogExporter receives structured entries alongside the normal handlers.
type LogExporter interface {
	Export(ctx context.Context, entry LogEntry) error
	Flush(ctx context.Context) error
	Close() error
}

// LogEntry is the exporter's view of one record.
type LogEntry struct {
	Time    time.Time
	Level   Level
	Message string
	Service string
	Attrs   map[string]any
}

// =============================================================================
// Logger
// =============================================================================

// Logger is a thin facade over *slog.Logger that owns the file handle and
// exporter lifecycle.
type Logger struct {
	slogger  *slog.Logger
	level    Level
	service  string
	exporter LogExporter
	file     *os.File

	mu     sync.Mutex
	closed bool
}

// New builds a Logger from config. A log file that cannot be opened
// degrades to console-only logging rather than failing the command.
func New(config Config) *Logger {
	if config.Service == "" {
		config.Service = "chatqna"
	}

	opts := &slog.HandlerOptions{Level: config.Level.toSlogLevel()}
	var handlers []slog.Handler

	if !config.Quiet {
		if config.JSON {
			handlers = append(handlers, slog.NewJSONHandler(os.Stderr, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(os.Stderr, opts))
		}
	}

	logger := &Logger{
		level:    config.Level,
		service:  config.Service,
		exporter: config.Exporter,
	}

	if config.LogDir != "" {
		dir := expandPath(config.LogDir)
		if err := os.MkdirAll(dir, 0o755); err == nil {
			name := fmt.Sprintf("%s_%s.log", config.Service, time.Now().Format("2006-01-02"))
			file, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err == nil {
				logger.file = file
				handlers = append(handlers, slog.NewJSONHandler(file, opts))
			}
		}
	}

	if len(handlers) == 0 {
		handlers = append(handlers, slog.NewTextHandler(io.Discard, opts))
	}

	logger.slogger = slog.New(&multiHandler{handlers: handlers})
	return logger
}

// Default returns a console-only info-level logger.
func Default() *Logger {
	return New(Config{Level: LevelInfo})
}

func (l *Logger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(LevelWarn, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(LevelError, msg, args...) }

// With returns a logger that carries args on every record. The child
// shares the parent's file and exporter.
func (l *Logger) With(args ...any) *Logger {
	child := &Logger{
		slogger:  l.slogger.With(args...),
		level:    l.level,
		service:  l.service,
		exporter: l.exporter,
		file:     l.file,
	}
	l.mu.Lock()
	child.closed = l.closed
	l.mu.Unlock()
	return child
}

// Slog exposes the underlying *slog.Logger for packages that take one.
func (l *Logger) Slog() *slog.Logger {
	return l.slogger
}

// Close flushes and releases the file and exporter. Safe to call twice.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	var errs []error
	if l.exporter != nil {
		if err := l.exporter.Flush(context.Background()); err != nil {
			errs = append(errs, err)
		}
		if err := l.exporter.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if l.file != nil {
		if err := l.file.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("closing logger: %v", errs)
	}
	return nil
}

func (l *Logger) log(level Level, msg string, args ...any) {
	if level < l.level {
		return
	}
	l.slogger.Log(context.Background(), level.toSlogLevel(), msg, args...)

	if l.exporter != nil {
		_ = l.exporter.Export(context.Background(), LogEntry{
			Time:    time.Now(),
			Level:   level,
			Message: msg,
			Service: l.service,
			Attrs:   argsToMap(args),
		})
	}
}

// =============================================================================
// Multi-Handler
// =============================================================================

// multiHandler fans one record out to every configured slog handler.
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

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: next}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: next}
}

// =============================================================================
// Helpers
// =============================================================================

func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

func argsToMap(args []any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	attrs := make(map[string]any, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", args[i])
		}
		attrs[key] = args[i+1]
	}
	return attrs
}

// =============================================================================
// Built-In Exporters
// =============================================================================

// NopExporter discards every entry.
type NopExporter struct{}

func (e *NopExporter) Export(ctx context.Context, entry LogEntry) error { return nil }
func (e *NopExporter) Flush(ctx context.Context) error                  { return nil }
func (e *NopExporter) Close() error                                     { return nil }

// BufferedExporter retains entries in memory, for tests.
type BufferedExporter struct {
	mu      sync.Mutex
	entries []LogEntry
}

func NewBufferedExporter() *BufferedExporter {
	return &BufferedExporter{}
}

func (e *BufferedExporter) Export(ctx context.Context, entry LogEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = append(e.entries, entry)
	return nil
}

func (e *BufferedExporter) Flush(ctx context.Context) error { return nil }
func (e *BufferedExporter) Close() error                    { return nil }

// Entries returns a copy of everything exported so far.
func (e *BufferedExporter) Entries() []LogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]LogEntry, len(e.entries))
	copy(out, e.entries)
	return out
}

// WriterExporter writes one line per entry to w.
type WriterExporter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterExporter(w io.Writer) *WriterExporter {
	return &WriterExporter{w: w}
}

func (e *WriterExporter) Export(ctx context.Context, entry LogEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := fmt.Fprintf(e.w, "%s [%s] %s %v\n",
		entry.Time.Format(time.RFC3339), entry.Level, entry.Message, entry.Attrs)
	return err
}

func (e *WriterExporter) Flush(ctx context.Context) error { return nil }
func (e *WriterExporter) Close() error                    { return nil }

// =============================================================================
// Compile-Time Interface Checks
// =============================================================================

var _ LogExporter = (*NopExporter)(nil)
var _ LogExporter = (*BufferedExporter)(nil)
var _ LogExporter = (*WriterExporter)(nil)
var _ slog.Handler = (*multiHandler)(nil)
