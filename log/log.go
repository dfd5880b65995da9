// Package log provides module-scoped structured loggers for the execution
// core. It wraps go-ethereum's slog based logger so output matches the
// terminal, logfmt and JSON formats used across the Ethereum tooling.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	gethlog "github.com/ethereum/go-ethereum/log"
)

// Output formats accepted by New and Setup.
const (
	FormatTerminal = "terminal"
	FormatLogfmt   = "logfmt"
	FormatJSON     = "json"
)

// LevelTrace is more verbose than debug; used for per-opcode output.
const LevelTrace = gethlog.LevelTrace

// Config selects the process-wide log output.
type Config struct {
	Format string
	Level  slog.Level
	Color  bool
	Output io.Writer
}

var root atomic.Pointer[gethlog.Logger]

func init() {
	l := gethlog.NewLogger(gethlog.NewTerminalHandlerWithLevel(os.Stderr, slog.LevelInfo, false))
	root.Store(&l)
}

// Logger carries context attributes. Loggers obtained from Module follow
// the root installed by Setup, even if Setup runs after they were created.
type Logger struct {
	ctx   []any
	fixed gethlog.Logger
}

// New creates a Logger bound to its own handler, independent of Setup.
func New(w io.Writer, format string, level slog.Level) (*Logger, error) {
	h, err := newHandler(w, format, level, false)
	if err != nil {
		return nil, err
	}
	return &Logger{fixed: gethlog.NewLogger(h)}, nil
}

// NewWithHandler creates a Logger backed by the supplied slog.Handler.
func NewWithHandler(h slog.Handler) *Logger {
	return &Logger{fixed: gethlog.NewLogger(h)}
}

// Setup installs the root logger used by every module logger, and by
// go-ethereum packages that log through gethlog.Root.
func Setup(cfg Config) error {
	w := cfg.Output
	if w == nil {
		w = os.Stderr
	}
	h, err := newHandler(w, cfg.Format, cfg.Level, cfg.Color)
	if err != nil {
		return err
	}
	l := gethlog.NewLogger(h)
	root.Store(&l)
	gethlog.SetDefault(l)
	return nil
}

func newHandler(w io.Writer, format string, level slog.Level, color bool) (slog.Handler, error) {
	switch strings.ToLower(format) {
	case "", FormatTerminal:
		return gethlog.NewTerminalHandlerWithLevel(w, level, color), nil
	case FormatLogfmt:
		return gethlog.LogfmtHandlerWithLevel(w, level), nil
	case FormatJSON:
		return gethlog.JSONHandlerWithLevel(w, level), nil
	default:
		return nil, fmt.Errorf("log: unknown format %q", format)
	}
}

// ParseLevel maps a level name (trace, debug, info, warn, error, crit) to
// its slog level. The match is case-insensitive.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return gethlog.LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "crit":
		return gethlog.LevelCrit, nil
	}
	return slog.LevelInfo, fmt.Errorf("log: unknown level %q", s)
}

// Module returns a logger tagged with module=name.
func Module(name string) *Logger {
	return &Logger{ctx: []any{"module", name}}
}

// Module returns a child logger with an additional "module" attribute.
func (l *Logger) Module(name string) *Logger {
	return l.With("module", name)
}

// With returns a child logger with additional key-value context.
func (l *Logger) With(args ...any) *Logger {
	if l.fixed != nil {
		return &Logger{fixed: l.fixed.With(args...)}
	}
	ctx := make([]any, 0, len(l.ctx)+len(args))
	ctx = append(append(ctx, l.ctx...), args...)
	return &Logger{ctx: ctx}
}

func (l *Logger) backend() gethlog.Logger {
	if l.fixed != nil {
		return l.fixed
	}
	return (*root.Load()).With(l.ctx...)
}

// Trace logs at LevelTrace.
func (l *Logger) Trace(msg string, args ...any) { l.backend().Trace(msg, args...) }

// Debug logs at slog.LevelDebug.
func (l *Logger) Debug(msg string, args ...any) { l.backend().Debug(msg, args...) }

// Info logs at slog.LevelInfo.
func (l *Logger) Info(msg string, args ...any) { l.backend().Info(msg, args...) }

// Warn logs at slog.LevelWarn.
func (l *Logger) Warn(msg string, args ...any) { l.backend().Warn(msg, args...) }

// Error logs at slog.LevelError.
func (l *Logger) Error(msg string, args ...any) { l.backend().Error(msg, args...) }
