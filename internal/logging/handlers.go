package logging

import (
	"context"
	"errors"
	"log/slog"
)

// FieldSessionID is the structured logging key for watch session identifiers.
const FieldSessionID = "session_id"

// multiHandler sends each record to every child that accepts its level.
type multiHandler []slog.Handler

func newMultiHandler(handlers ...slog.Handler) slog.Handler {
	var children multiHandler
	for _, h := range handlers {
		if h != nil {
			children = append(children, h)
		}
	}
	switch len(children) {
	case 0:
		return NoopHandler{}
	case 1:
		return children[0]
	default:
		return children
	}
}

func (m multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m multiHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range m {
		if h.Enabled(ctx, record.Level) {
			errs = append(errs, h.Handle(ctx, record.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (m multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (m multiHandler) WithGroup(name string) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m multiHandler) each(fn func(slog.Handler) slog.Handler) multiHandler {
	next := make(multiHandler, len(m))
	for i, h := range m {
		next[i] = fn(h)
	}
	return next
}

// TeeLogger returns a logger that writes every record to logger's handler
// and to each extra handler.
func TeeLogger(logger *slog.Logger, extra ...slog.Handler) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return slog.New(newMultiHandler(append([]slog.Handler{logger.Handler()}, extra...)...))
}

// stampHandler adds fixed attributes when a record is handled, so they
// follow any attributes added through With.
type stampHandler struct {
	next  slog.Handler
	attrs []slog.Attr
}

func (s stampHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return s.next.Enabled(ctx, level)
}

func (s stampHandler) Handle(ctx context.Context, record slog.Record) error {
	record.AddAttrs(s.attrs...)
	return s.next.Handle(ctx, record)
}

func (s stampHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return stampHandler{next: s.next.WithAttrs(attrs), attrs: s.attrs}
}

func (s stampHandler) WithGroup(name string) slog.Handler {
	return stampHandler{next: s.next.WithGroup(name), attrs: s.attrs}
}

// WithSessionID returns a logger that stamps every record with sessionID.
func WithSessionID(logger *slog.Logger, sessionID string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	return slog.New(stampHandler{next: logger.Handler(), attrs: []slog.Attr{slog.String(FieldSessionID, sessionID)}})
}
