package analysis

import (
	"fmt"
	"time"

	"sentinel/internal/domain/profile"
	"sentinel/pkg/errors"
)

// Stage is a step of the per-item pipeline
type Stage string

const (
	StagePending    Stage = "pending"
	StageFetching   Stage = "fetching"
	StageExtracting Stage = "extracting"
	StageScoring    Stage = "scoring"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// ErrorKind classifies a per-item failure
type ErrorKind string

const (
	KindNotFound       ErrorKind = "not_found"
	KindRateLimited    ErrorKind = "rate_limited"
	KindAuthError      ErrorKind = "auth_error"
	KindTransient      ErrorKind = "transient"
	KindMalformedInput ErrorKind = "malformed_input"
	KindCanceled       ErrorKind = "canceled"
	KindInternal       ErrorKind = "internal"
)

// KindOf maps an error chain to its kind. Unclassified errors are internal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, errors.ErrNotFound):
		return KindNotFound
	case errors.Is(err, errors.ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, errors.ErrAuth):
		return KindAuthError
	case errors.Is(err, errors.ErrTransient):
		return KindTransient
	case errors.Is(err, errors.ErrMalformedInput):
		return KindMalformedInput
	case errors.Is(err, errors.ErrCanceled):
		return KindCanceled
	default:
		return KindInternal
	}
}

// ErrorRecord describes why one item did not produce a report
type ErrorRecord struct {
	Identifier string    `json:"identifier"`
	Stage      Stage     `json:"stage"`
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`

	cause error
}

// NewErrorRecord builds a record, classifying err by its sentinel
func NewErrorRecord(identifier string, stage Stage, err error) *ErrorRecord {
	return &ErrorRecord{
		Identifier: identifier,
		Stage:      stage,
		Kind:       KindOf(err),
		Message:    err.Error(),
		cause:      err,
	}
}

// Error implements the error interface
func (e *ErrorRecord) Error() string {
	return fmt.Sprintf("%s failed at %s (%s): %s", e.Identifier, e.Stage, e.Kind, e.Message)
}

// Unwrap returns the original cause when known
func (e *ErrorRecord) Unwrap() error {
	return e.cause
}

// ItemOutcome is the terminal result of one submitted identifier
type ItemOutcome struct {
	Index      int             `json:"index"`
	Identifier string          `json:"identifier"`
	Stage      Stage           `json:"stage"`
	Report     *AnalysisReport `json:"report,omitempty"`
	Error      *ErrorRecord    `json:"error,omitempty"`
}

// Done reports whether the item produced a report
func (o ItemOutcome) Done() bool {
	return o.Stage == StageDone && o.Report != nil
}

// IndicatorCount is one entry of the batch's most frequent indicators
type IndicatorCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Summary aggregates a finished batch
type Summary struct {
	Total              int               `json:"total"`
	Done               int               `json:"done"`
	Failed             int               `json:"failed"`
	FakeCount          int               `json:"fake_count"`
	AuthenticCount     int               `json:"authentic_count"`
	ErrorCount         int               `json:"error_count"`
	ErrorsByKind       map[ErrorKind]int `json:"errors_by_kind"`
	AverageProbability float64           `json:"average_probability"`
	TopIndicators      []IndicatorCount  `json:"top_indicators"`
}

// BatchStatus is the lifecycle state of a whole batch
type BatchStatus string

const (
	BatchRunning   BatchStatus = "running"
	BatchCompleted BatchStatus = "completed"
	BatchCanceled  BatchStatus = "canceled"
)

// BatchJob is the result of analyzing many identifiers. Outcomes follow submission order.
type BatchJob struct {
	ID          string           `json:"id"`
	Platform    profile.Platform `json:"platform"`
	Identifiers []string         `json:"identifiers"`
	Status      BatchStatus      `json:"status"`
	Outcomes    []ItemOutcome    `json:"outcomes"`
	Summary     Summary          `json:"summary"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
}
