package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

var (
	defaultLogger *slog.Logger
	handlerOpts   *slog.HandlerOptions
	once          sync.Once

	targetsMu sync.Mutex
	targets   = make(map[string]*target)
)

type target struct {
	logger *slog.Logger
	closer io.Closer
}

// Init initializes the global logger based on environment variables.
// DEBUG=true enables debug level logging.
func Init() {
	once.Do(func() {
		level := slog.LevelInfo
		if os.Getenv("DEBUG") == "true" {
			level = slog.LevelDebug
		}

		handlerOpts = &slog.HandlerOptions{
			Level: level,
			// Add source file information if in debug mode
			AddSource: level == slog.LevelDebug,
		}

		handler := slog.NewTextHandler(os.Stdout, handlerOpts)
		defaultLogger = slog.New(handler)
		slog.SetDefault(defaultLogger)
	})
}

// Target returns the logger writing to the named log target.
// An empty name, "stdout" or "stderr" selects the console; anything else is
// treated as a file path opened in append mode. Loggers are cached per name,
// so sites sharing a log path share one file.
func Target(name string) *slog.Logger {
	if defaultLogger == nil {
		Init()
	}

	switch name {
	case "", "stdout":
		return defaultLogger
	case "stderr":
		return slog.New(slog.NewTextHandler(os.Stderr, handlerOpts))
	}

	targetsMu.Lock()
	defer targetsMu.Unlock()

	if t, ok := targets[name]; ok {
		return t.logger
	}

	if dir := filepath.Dir(name); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			defaultLogger.Error("Failed to create log directory, using stdout", "target", name, "error", err)
			return defaultLogger
		}
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		defaultLogger.Error("Failed to open log target, using stdout", "target", name, "error", err)
		return defaultLogger
	}

	l := slog.New(slog.NewTextHandler(f, handlerOpts)).With("log_target", name)
	targets[name] = &target{logger: l, closer: f}
	return l
}

// CloseTargets closes every file opened by Target.
func CloseTargets() {
	targetsMu.Lock()
	defer targetsMu.Unlock()

	for name, t := range targets {
		if err := t.closer.Close(); err != nil {
			defaultLogger.Warn("Failed to close log target", "target", name, "error", err)
		}
		delete(targets, name)
	}
}

// Debug logs at Debug level.
func Debug(msg string, args ...any) {
	if defaultLogger == nil {
		Init()
	}
	defaultLogger.Debug(msg, args...)
}

// Info logs at Info level.
func Info(msg string, args ...any) {
	if defaultLogger == nil {
		Init()
	}
	defaultLogger.Info(msg, args...)
}

// Warn logs at Warn level.
func Warn(msg string, args ...any) {
	if defaultLogger == nil {
		Init()
	}
	defaultLogger.Warn(msg, args...)
}

// Error logs at Error level.
func Error(msg string, args ...any) {
	if defaultLogger == nil {
		Init()
	}
	defaultLogger.Error(msg, args...)
}

// Fatal logs at Error level and then exits.
func Fatal(msg string, args ...any) {
	if defaultLogger == nil {
		Init()
	}
	defaultLogger.Error(msg, args...)
	os.Exit(1)
}

// With returns a new logger with the given attributes.
func With(args ...any) *slog.Logger {
	if defaultLogger == nil {
		Init()
	}
	return defaultLogger.With(args...)
}

// InfoContext logs at Info level with context.
func InfoContext(ctx context.Context, msg string, args ...any) {
	if defaultLogger == nil {
		Init()
	}
	defaultLogger.InfoContext(ctx, msg, args...)
}

// ErrorContext logs at Error level with context.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	if defaultLogger == nil {
		Init()
	}
	defaultLogger.ErrorContext(ctx, msg, args...)
}
