package sentry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"sentinel/pkg/errors"
)

const defaultFlushTimeout = 2 * time.Second

// Tracker reports engine failures to Sentry. Events raised inside a batch
// carry its batch_id tag.
type Tracker struct {
	hub          *sentry.Hub
	flushTimeout time.Duration
}

// New initializes the global Sentry client
func New(dsn string, environment string) (*Tracker, error) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	})
	if err != nil {
		return nil, err
	}
	return newTracker(sentry.CurrentHub()), nil
}

func newTracker(hub *sentry.Hub) *Tracker {
	return &Tracker{hub: hub, flushTimeout: defaultFlushTimeout}
}

// CaptureError sends err with tags on a scope of its own
func (t *Tracker) CaptureError(ctx context.Context, err error, tags map[string]string) error {
	hub := t.hub.Clone()

	hub.ConfigureScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		if batchID, ok := errors.BatchIDFrom(ctx); ok {
			scope.SetTag("batch_id", batchID)
		}
	})

	hub.CaptureException(err)
	return nil
}

// AddBreadcrumb records a batch step on the shared hub
func (t *Tracker) AddBreadcrumb(ctx context.Context, message string, category string, level errors.Level, data map[string]interface{}) {
	if batchID, ok := errors.BatchIDFrom(ctx); ok {
		merged := make(map[string]interface{}, len(data)+1)
		for k, v := range data {
			merged[k] = v
		}
		merged["batch_id"] = batchID
		data = merged
	}

	t.hub.AddBreadcrumb(&sentry.Breadcrumb{
		Message:  message,
		Category: category,
		Level:    convertLevel(level),
		Data:     data,
	}, &sentry.BreadcrumbHint{})
}

// Flush waits for queued events until the flush timeout or the ctx deadline, whichever is sooner
func (t *Tracker) Flush(ctx context.Context) error {
	timeout := t.flushTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if !t.hub.Flush(timeout) {
		return errors.Wrap(errors.ErrTransient, "sentry flush timed out")
	}
	return nil
}

func convertLevel(level errors.Level) sentry.Level {
	switch level {
	case errors.LevelDebug:
		return sentry.LevelDebug
	case errors.LevelWarning:
		return sentry.LevelWarning
	case errors.LevelError:
		return sentry.LevelError
	default:
		return sentry.LevelInfo
	}
}

var _ errors.Tracker = (*Tracker)(nil)
