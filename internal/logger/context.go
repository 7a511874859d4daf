package logger

import (
	"context"
	"time"
)

type logContextKey struct{}

// LogContext carries the fields every log line of one FTP session repeats.
// Values are immutable: the With* methods return modified copies, so a
// context handed to a goroutine never changes under it.
type LogContext struct {
	TraceID   string
	SpanID    string
	SessionID string
	ClientIP  string // without port
	Username  string // empty until login
	Command   string // verb in progress, e.g. RETR
	StartTime time.Time
}

func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey{}, lc)
}

// FromContext returns the LogContext stored in ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey{}).(*LogContext)
	return lc
}

func NewLogContext(sessionID, clientIP string) *LogContext {
	return &LogContext{SessionID: sessionID, ClientIP: clientIP, StartTime: time.Now()}
}

// Clone returns a shallow copy; nil stays nil.
func (lc *LogContext) Clone() *LogContext {
	return lc.with(func(*LogContext) {})
}

func (lc *LogContext) with(edit func(*LogContext)) *LogContext {
	if lc == nil {
		return nil
	}
	c := *lc
	edit(&c)
	return &c
}

// WithCommand also restarts the timer read by DurationMs.
func (lc *LogContext) WithCommand(cmd string) *LogContext {
	return lc.with(func(c *LogContext) {
		c.Command = cmd
		c.StartTime = time.Now()
	})
}

func (lc *LogContext) WithUser(username string) *LogContext {
	return lc.with(func(c *LogContext) { c.Username = username })
}

func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	return lc.with(func(c *LogContext) { c.TraceID, c.SpanID = traceID, spanID })
}

// DurationMs is the time since StartTime in milliseconds.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return Duration(lc.StartTime)
}
