package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// TerminatedError signals that the job was cancelled or superseded by a newer
// request. It must propagate unmodified through every layer: per-clip and
// per-panel failure capture explicitly re-throws it, and handlers never retry
// after seeing it.
type TerminatedError struct {
	JobID      string
	Checkpoint string
}

func (e *TerminatedError) Error() string {
	return fmt.Sprintf("task terminated at checkpoint %q (job %s)", e.Checkpoint, e.JobID)
}

// IsTerminated reports whether err is (or wraps) a termination signal.
func IsTerminated(err error) bool {
	var t *TerminatedError
	return errors.As(err, &t)
}

// ParseError reports model output that failed to decode against the expected
// structured schema. It carries the raw text so the failed generation can be
// inspected without a log search.
type ParseError struct {
	Action  string
	RawText string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s output: %v", e.Action, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// AsParseError returns the underlying ParseError, if any.
func AsParseError(err error) (*ParseError, bool) {
	var p *ParseError
	ok := errors.As(err, &p)
	return p, ok
}

// FailurePreview identifies one failed sub-unit of a batch.
type FailurePreview struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// PartialFailureError aggregates per-unit failures of a required-unanimous
// workflow. It is raised once after the full orchestration completes and
// embeds a preview of up to the first 3 failing items.
type PartialFailureError struct {
	Code        string
	FailedCount int
	TotalCount  int
	Preview     []FailurePreview
}

const previewLimit = 3

// NewPartialFailure builds a PartialFailureError from the full failure list,
// truncating the preview to the first 3 items.
func NewPartialFailure(code string, total int, failures []FailurePreview) *PartialFailureError {
	preview := failures
	if len(preview) > previewLimit {
		preview = preview[:previewLimit]
	}
	return &PartialFailureError{
		Code:        code,
		FailedCount: len(failures),
		TotalCount:  total,
		Preview:     preview,
	}
}

func (e *PartialFailureError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d of %d units failed", e.Code, e.FailedCount, e.TotalCount)
	for i, p := range e.Preview {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %s", p.ID, p.Reason)
	}
	return b.String()
}
