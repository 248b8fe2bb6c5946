// Package logging provides an slog.Handler that picks up attributes stored in the context.
package logging

import (
	"context"
	"fmt"
	"log/slog"
)

type contextKey struct{}

// ContextHandler decorates records with the attributes added to the context with WithAttrs.
type ContextHandler struct {
	next slog.Handler
}

// NewContextHandler wraps h so that records logged with a context carry the context's attributes.
func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{next: h}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle adds the context attributes to r before passing it on.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(Attrs(ctx)...)
	if err := h.next.Handle(ctx, r); err != nil {
		return fmt.Errorf("handle log record: %w", err)
	}
	return nil
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name)}
}

// WithAttrs returns a copy of ctx whose log records are enriched with attrs.
func WithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	existing := Attrs(ctx)
	merged := make([]slog.Attr, 0, len(existing)+len(attrs))
	merged = append(merged, existing...)
	merged = append(merged, attrs...)
	return context.WithValue(ctx, contextKey{}, merged)
}

// Attrs returns the attributes stored in ctx.
func Attrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	attrs, _ := ctx.Value(contextKey{}).([]slog.Attr)
	return attrs
}
