package ingest

import (
	"errors"
	"fmt"
)

var (
	ErrMissingEventHeader = errors.New("missing_header:x-github-event")
	ErrInvalidSubmission  = errors.New("invalid_request")
)

// SubmissionError names why a submitted batch was refused as a whole.
type SubmissionError struct {
	Reason string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidSubmission, e.Reason)
}

func (e *SubmissionError) Unwrap() error {
	return ErrInvalidSubmission
}
