package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	defaultLogger *slog.Logger
	mu            sync.Mutex
)

type Options struct {
	Env    string
	Level  string
	Format string
	Output io.Writer
}

// Init keeps the env-only entrypoint used by the CLI before config is loaded.
func Init(env string) {
	Configure(Options{Env: env})
}

// Configure installs the process-wide logger. Format falls back to json in
// production and text elsewhere; level falls back to info/debug the same way.
func Configure(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	format := strings.ToLower(opts.Format)
	if format == "" {
		format = "text"
		if opts.Env == "production" {
			format = "json"
		}
	}

	level := parseLevel(opts.Level, opts.Env)
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	l := slog.New(handler).With("service", "work-permit")

	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	slog.SetDefault(l)
	return l
}

func parseLevel(level, env string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if env == "production" {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

func LoggerWrapper() *slog.Logger {
	mu.Lock()
	l := defaultLogger
	mu.Unlock()
	if l == nil {
		// lazy initialize a development logger to avoid nil pointer panics
		return Configure(Options{Env: "development"})
	}
	return l
}

// Discard is used by tests that don't care about log output.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
