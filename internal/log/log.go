// Package log provides category-scoped structured logging for soundcheck.
//
// Every record carries a "cat" attribute naming the subsystem that emitted it,
// so a single log stream can be filtered per component:
//
//	log.Debug(log.CatLoader, "Backend load requested", "key", key)
//	log.ErrorErr(log.CatBackend, "Decode failed", err, "path", path)
//
// Until Setup is called all records are discarded, which keeps tests quiet.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Category identifies the subsystem that produced a log record.
type Category string

// Log categories.
const (
	CatCatalog  Category = "catalog"
	CatLoader   Category = "loader"
	CatPlayback Category = "playback"
	CatBackend  Category = "backend"
	CatDiag     Category = "diag"
	CatConfig   Category = "config"
	CatWatch    Category = "watch"
	CatTrace    Category = "trace"
	CatCLI      Category = "cli"
)

var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(slog.New(slog.DiscardHandler))
}

// FileOptions configures the rotating log file.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Options configures the process logger.
type Options struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string
	// Format is "text" or "json". Defaults to "text".
	Format string
	// Output receives log records. Defaults to os.Stderr.
	Output io.Writer
	// File enables an additional rotating log file when non-nil.
	File *FileOptions
}

// Setup installs the process logger described by opts.
// The returned closer flushes and closes the log file, if any.
func Setup(opts Options) (io.Closer, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	writers := []io.Writer{out}
	var closer io.Closer = nopCloser{}

	if opts.File != nil && opts.File.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		fileWriter := &lumberjack.Logger{
			Filename:   opts.File.Path,
			MaxSize:    opts.File.MaxSizeMB,
			MaxBackups: opts.File.MaxBackups,
			MaxAge:     opts.File.MaxAgeDays,
		}
		writers = append(writers, fileWriter)
		closer = fileWriter
	}

	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	w := io.MultiWriter(writers...)

	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	logger.Store(slog.New(handler))
	return closer, nil
}

// SetLogger replaces the process logger. Intended for tests.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	logger.Store(l)
}

// ParseLevel converts a level name to slog.Level, defaulting to Info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs at debug level.
func Debug(cat Category, msg string, args ...any) {
	logger.Load().Debug(msg, withCategory(cat, args)...)
}

// Info logs at info level.
func Info(cat Category, msg string, args ...any) {
	logger.Load().Info(msg, withCategory(cat, args)...)
}

// Warn logs at warn level.
func Warn(cat Category, msg string, args ...any) {
	logger.Load().Warn(msg, withCategory(cat, args)...)
}

// Error logs at error level.
func Error(cat Category, msg string, args ...any) {
	logger.Load().Error(msg, withCategory(cat, args)...)
}

// ErrorErr logs at error level with err attached under the "error" key.
func ErrorErr(cat Category, msg string, err error, args ...any) {
	args = append(args, "error", err)
	logger.Load().Error(msg, withCategory(cat, args)...)
}

// SafeGo runs fn on a new goroutine, logging instead of crashing if it panics.
func SafeGo(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				Error(CatCLI, "Recovered panic in goroutine",
					"goroutine", name,
					"panic", fmt.Sprint(r),
					"stack", string(debug.Stack()))
			}
		}()
		fn()
	}()
}

func withCategory(cat Category, args []any) []any {
	out := make([]any, 0, len(args)+2)
	out = append(out, "cat", string(cat))
	return append(out, args...)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
