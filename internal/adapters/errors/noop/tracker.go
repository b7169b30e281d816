package noop

import (
	"context"

	"sentinel/pkg/errors"
)

// Tracker discards everything. The engine falls back to it when error
// tracking is disabled.
type Tracker struct{}

func New() *Tracker { return &Tracker{} }

func (*Tracker) CaptureError(context.Context, error, map[string]string) error { return nil }

func (*Tracker) AddBreadcrumb(context.Context, string, string, errors.Level, map[string]interface{}) {}

func (*Tracker) Flush(context.Context) error { return nil }

var _ errors.Tracker = (*Tracker)(nil)
