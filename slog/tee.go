package slog

import (
	"context"
	"errors"
	"log/slog"
)

// Ensure TeeHandler implements slog.Handler.
var _ slog.Handler = (*TeeHandler)(nil)

// TeeHandler fans each record out to several handlers. Each handler keeps
// its own level.
type TeeHandler struct {
	handlers []slog.Handler
}

// NewTeeHandler creates a TeeHandler over handlers.
func NewTeeHandler(handlers ...slog.Handler) *TeeHandler {
	return &TeeHandler{handlers: handlers}
}

// Enabled reports whether any handler accepts level.
func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, next := range h.handlers {
		if next.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes r to every handler that accepts its level.
func (h *TeeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, next := range h.handlers {
		if !next.Enabled(ctx, r.Level) {
			continue
		}
		if err := next.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, next := range h.handlers {
		handlers[i] = next.WithAttrs(attrs)
	}
	return &TeeHandler{handlers: handlers}
}

func (h *TeeHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, next := range h.handlers {
		handlers[i] = next.WithGroup(name)
	}
	return &TeeHandler{handlers: handlers}
}
