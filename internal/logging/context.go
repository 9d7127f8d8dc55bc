package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldFile is the standardized key for the path of the file being handled.
	FieldFile = "file"
	// FieldStage is the standardized key for the consolidation or watcher state.
	FieldStage = "stage"
	// FieldCorrelationID ties together every line logged while one file is handled.
	FieldCorrelationID = "correlation_id"
	// FieldEventType names the event a line reports, for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint is the operator-facing next step for a failure.
	FieldErrorHint = "error_hint"
	// FieldErrorKind is the failure marker label of an error.
	FieldErrorKind = "error_kind"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type contextKey string

const (
	fileKey          contextKey = "file"
	correlationIDKey contextKey = "correlation_id"
)

// WithFile returns a context carrying the path of the file being handled.
func WithFile(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, fileKey, path)
}

// WithCorrelationID returns a context carrying a per-file correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if path, ok := ctx.Value(fileKey).(string); ok && path != "" {
		fields = append(fields, slog.String(FieldFile, path))
	}
	if id, ok := ctx.Value(correlationIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldCorrelationID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, 0, len(fields))
	for _, field := range fields {
		args = append(args, field)
	}
	return logger.With(args...)
}
