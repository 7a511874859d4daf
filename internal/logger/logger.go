// Package logger is a process-wide structured logger on top of log/slog.
//
// Text output is colored when written to a terminal; json output is meant
// for collectors. Level, format and destination can change at runtime.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level is a log severity, ordered from most to least verbose.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel converts a level name into a Level. Unknown names report false.
func ParseLevel(s string) (Level, bool) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "WARNING" {
		name = "WARN"
	}
	for i, n := range levelNames {
		if n == name {
			return Level(i), true
		}
	}
	return LevelInfo, false
}

// slog levels are spaced by 4 starting at -4 for debug.
func (l Level) slogLevel() slog.Level {
	return slog.Level(4 * (int(l) - 1))
}

// Config mirrors the logging section of the server configuration.
type Config struct {
	Level  string
	Format string // text or json
	Output string // stdout, stderr or a file path
}

// sink is where records go and how they are encoded.
type sink struct {
	w      io.Writer
	closer io.Closer
	color  bool
	json   bool
}

var (
	level slog.LevelVar

	mu      sync.Mutex
	current = sink{w: os.Stdout, color: isTerminal(os.Stdout)}
	active  atomic.Pointer[slog.Logger]
)

func init() {
	level.Set(slog.LevelInfo)
	rebuild()
}

// rebuild swaps in a logger for current. The handler reads level
// dynamically, so level changes alone do not need it.
func rebuild() {
	mu.Lock()
	defer mu.Unlock()

	opts := &slog.HandlerOptions{Level: &level}
	var h slog.Handler
	if current.json {
		h = slog.NewJSONHandler(current.w, opts)
	} else {
		h = NewColorTextHandler(current.w, opts, current.color)
	}
	active.Store(slog.New(h))
}

// Init applies cfg. Empty fields keep their current value.
func Init(cfg Config) error {
	if cfg.Output != "" {
		next, err := openSink(cfg.Output)
		if err != nil {
			return err
		}
		mu.Lock()
		if current.closer != nil {
			_ = current.closer.Close()
		}
		next.json = current.json
		current = next
		mu.Unlock()
	}

	SetLevel(cfg.Level)
	SetFormat(cfg.Format)
	rebuild()
	return nil
}

func openSink(dest string) (sink, error) {
	switch strings.ToLower(dest) {
	case "stdout":
		return sink{w: os.Stdout, color: isTerminal(os.Stdout)}, nil
	case "stderr":
		return sink{w: os.Stderr, color: isTerminal(os.Stderr)}, nil
	}

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return sink{}, fmt.Errorf("failed to open log file %q: %w", dest, err)
	}
	return sink{w: f, closer: f}, nil
}

// InitWithWriter sends output to w. Used by tests and embedders.
func InitWithWriter(w io.Writer, lvl, format string, enableColor bool) {
	mu.Lock()
	current.w, current.closer, current.color = w, nil, enableColor
	mu.Unlock()

	SetLevel(lvl)
	SetFormat(format)
	rebuild()
}

// SetLevel sets the minimum level. Invalid names are ignored.
func SetLevel(name string) {
	if l, ok := ParseLevel(name); ok {
		level.Set(l.slogLevel())
	}
}

// SetFormat selects text or json. Other values are ignored.
func SetFormat(format string) {
	var json bool
	switch strings.ToLower(format) {
	case "json":
		json = true
	case "text":
	default:
		return
	}
	mu.Lock()
	changed := current.json != json
	current.json = json
	mu.Unlock()
	if changed {
		rebuild()
	}
}

// Enabled reports whether records at l are emitted.
func Enabled(l Level) bool {
	return l.slogLevel() >= level.Level()
}

func emit(ctx context.Context, l Level, msg string, args []any) {
	if Enabled(l) {
		active.Load().Log(ctx, l.slogLevel(), msg, args...)
	}
}

func emitCtx(ctx context.Context, l Level, msg string, args []any) {
	if Enabled(l) {
		active.Load().Log(ctx, l.slogLevel(), msg, withContextFields(ctx, args)...)
	}
}

// Debug logs msg with alternating key/value args.
func Debug(msg string, args ...any) { emit(context.Background(), LevelDebug, msg, args) }
func Info(msg string, args ...any)  { emit(context.Background(), LevelInfo, msg, args) }
func Warn(msg string, args ...any)  { emit(context.Background(), LevelWarn, msg, args) }
func Error(msg string, args ...any) { emit(context.Background(), LevelError, msg, args) }

// DebugCtx is Debug with the LogContext fields of ctx prepended.
func DebugCtx(ctx context.Context, msg string, args ...any) { emitCtx(ctx, LevelDebug, msg, args) }
func InfoCtx(ctx context.Context, msg string, args ...any)  { emitCtx(ctx, LevelInfo, msg, args) }
func WarnCtx(ctx context.Context, msg string, args ...any)  { emitCtx(ctx, LevelWarn, msg, args) }
func ErrorCtx(ctx context.Context, msg string, args ...any) { emitCtx(ctx, LevelError, msg, args) }

func withContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	out := make([]any, 0, 12+len(args))
	for _, f := range [...]struct{ key, value string }{
		{KeyTraceID, lc.TraceID},
		{KeySpanID, lc.SpanID},
		{KeySessionID, lc.SessionID},
		{KeyClientIP, lc.ClientIP},
		{KeyUsername, lc.Username},
		{KeyCommand, lc.Command},
	} {
		if f.value != "" {
			out = append(out, f.key, f.value)
		}
	}
	return append(out, args...)
}

// With returns a child logger carrying args. It does not follow later
// format or output changes.
func With(args ...any) *slog.Logger {
	return active.Load().With(args...)
}

// Duration returns the milliseconds elapsed since start.
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
