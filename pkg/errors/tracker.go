package errors

import (
	"context"
)

// Tracker forwards failures and batch breadcrumbs to an error tracking service
type Tracker interface {
	CaptureError(ctx context.Context, err error, tags map[string]string) error

	// AddBreadcrumb records a step of a batch run so a later error has context
	AddBreadcrumb(ctx context.Context, message string, category string, level Level, data map[string]interface{})

	// Flush waits for pending events, bounded by ctx
	Flush(ctx context.Context) error
}

// Level is the severity attached to breadcrumbs
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type contextKey string

// BatchIDKey is the context key holding the ID of the running batch
const BatchIDKey contextKey = "batch_id"

// WithBatchID tags ctx with the running batch ID
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, BatchIDKey, batchID)
}

// BatchIDFrom returns the batch ID stored by WithBatchID
func BatchIDFrom(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(BatchIDKey).(string)
	return id, ok && id != ""
}
