// Package trace carries a correlation ID through a context so that every log
// record produced while serving one command or one queued event can be joined
// together, across the publisher and the export worker.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
)

// ContextKey type for context keys
type ContextKey string

const (
	// CorrelationIDKey is the context key for the correlation ID
	CorrelationIDKey ContextKey = "correlation_id"
)

// NewID creates a random correlation ID.
func NewID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("op_%d", time.Now().UnixNano())
	}
	return "op_" + hex.EncodeToString(bytes)
}

// WithID returns a context carrying id. An empty id leaves ctx unchanged.
func WithID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// EnsureID returns ctx unchanged when it already carries an ID, otherwise a
// context with a fresh one.
func EnsureID(ctx context.Context) context.Context {
	if ID(ctx) != "" {
		return ctx
	}
	return WithID(ctx, NewID())
}

// ID extracts the correlation ID from context
func ID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}
	return ""
}

// Handler stamps the correlation ID of the record's context onto every
// record passed to the wrapped handler.
type Handler struct {
	next slog.Handler
}

// NewHandler wraps next.
func NewHandler(next slog.Handler) *Handler {
	if h, ok := next.(*Handler); ok {
		return h
	}
	return &Handler{next: next}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if id := ID(ctx); id != "" {
		r = r.Clone()
		r.AddAttrs(slog.String(string(CorrelationIDKey), id))
	}
	return h.next.Handle(ctx, r)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{next: h.next.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name)}
}

// Timer measures one traced operation.
type Timer struct {
	start time.Time
}

// Start begins timing an operation.
func Start() Timer {
	return Timer{start: time.Now()}
}

// Elapsed returns the time since Start.
func (t Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Level picks the level for a completed operation: Warn for domain
// rejections, Error for anything else, Info on success.
func Level(err error, domain func(error) bool) slog.Level {
	switch {
	case err == nil:
		return slog.LevelInfo
	case domain != nil && domain(err):
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
