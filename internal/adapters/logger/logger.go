// Package logger implements a logging adapter using log/slog.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/claimgraph/internal/core/domain"
	"go.trai.ch/zerr"
)

// messager matches *zerr.Error, which reports its own message without the chain.
type messager interface {
	Message() string
	Metadata() map[string]any
}

// Logger implements ports.Logger using log/slog.
type Logger struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	level    *slog.LevelVar
	jsonMode bool
	output   io.Writer
}

// New creates a Logger that pretty-prints to stderr at info level.
func New() *Logger {
	l := &Logger{
		level:  &slog.LevelVar{},
		output: os.Stderr,
	}
	l.rebuild()
	return l
}

// SetOutput updates the logger's output destination. If w is nil, os.Stderr is used.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if w == nil {
		w = os.Stderr
	}
	l.output = w
	l.rebuild()
}

// SetJSON switches between JSON and pretty logging.
func (l *Logger) SetJSON(enable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.jsonMode = enable
	l.rebuild()
}

// SetLevel sets the minimum level by name: debug, info, warn or error.
func (l *Logger) SetLevel(name string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "unknown log level"), "level", name)
	}
	l.level.Set(level)
	return nil
}

// rebuild swaps the handler. Callers hold l.mu.
func (l *Logger) rebuild() {
	opts := &slog.HandlerOptions{Level: l.level}
	var handler slog.Handler
	if l.jsonMode {
		handler = slog.NewJSONHandler(l.output, opts)
	} else {
		handler = NewPrettyHandler(l.output, opts)
	}
	l.logger = slog.New(handler)
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Debug(msg)
}

// Info logs an informational message.
func (l *Logger) Info(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Info(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Warn(msg)
}

// Error logs err. Pretty output renders the cause chain, one line per cause.
func (l *Logger) Error(err error) {
	if err == nil {
		return
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.jsonMode {
		l.logger.Error("operation failed", "error", err)
		return
	}
	l.logger.Error(formatErrorEntries(collectErrorEntries(err)))
}

type errorEntry struct {
	message  string
	metadata map[string]any
}

// collectErrorEntries walks the zerr chain. A standard error ends the walk
// with its full text. Entries without a message only carry metadata and are
// folded into the entry above them.
func collectErrorEntries(err error) []errorEntry {
	var entries []errorEntry
	for current := err; current != nil; {
		m, ok := current.(messager)
		if !ok {
			entries = append(entries, errorEntry{message: current.Error()})
			break
		}

		if m.Message() == "" && len(entries) > 0 {
			maps.Copy(entries[len(entries)-1].metadata, m.Metadata())
		} else if m.Message() != "" {
			entries = append(entries, errorEntry{message: m.Message(), metadata: m.Metadata()})
		} else {
			entries = append(entries, errorEntry{metadata: m.Metadata()})
		}
		current = errors.Unwrap(current)
	}

	// A leading metadata-only entry takes the message of the next one.
	if len(entries) > 1 && entries[0].message == "" {
		if entries[1].metadata == nil {
			entries[1].metadata = make(map[string]any)
		}
		maps.Copy(entries[1].metadata, entries[0].metadata)
		entries = entries[1:]
	}
	return entries
}

func formatErrorEntries(entries []errorEntry) string {
	var lines []string
	for i, e := range entries {
		text := strings.Split(e.message, "\n")
		head := text[0] + formatMetadata(e.metadata)

		if i == 0 {
			lines = append(lines, "Error: "+head)
			for _, line := range text[1:] {
				lines = append(lines, "       "+line)
			}
			continue
		}
		if i == 1 {
			lines = append(lines, "", "  Caused by:")
		}
		lines = append(lines, "    → "+head)
		for _, line := range text[1:] {
			lines = append(lines, "      "+line)
		}
	}
	return strings.Join(lines, "\n")
}

func formatMetadata(md map[string]any) string {
	if len(md) == 0 {
		return ""
	}
	parts := make([]string, 0, len(md))
	for _, k := range slices.Sorted(maps.Keys(md)) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, md[k]))
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
