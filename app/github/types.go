package github

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventKind is the value of the X-GitHub-Event header.
type EventKind string

const (
	EventIssues                   EventKind = "issues"
	EventIssueComment             EventKind = "issue_comment"
	EventPullRequest              EventKind = "pull_request"
	EventPullRequestReview        EventKind = "pull_request_review"
	EventPullRequestReviewComment EventKind = "pull_request_review_comment"

	// EventPing is sent once when a hook is created. It is answered but never normalized.
	EventPing EventKind = "ping"
)

// Request headers GitHub sets on every delivery.
const (
	HeaderEvent     = "X-GitHub-Event"
	HeaderDelivery  = "X-GitHub-Delivery"
	HeaderSignature = "X-Hub-Signature-256"
)

// IsPullRequest reports whether the subject of the event is a pull request.
func (k EventKind) IsPullRequest() bool {
	switch k {
	case EventPullRequest, EventPullRequestReview, EventPullRequestReviewComment:
		return true
	}
	return false
}

var (
	ErrUnsupportedEvent = errors.New("unsupported event")
	ErrMalformedPayload = errors.New("malformed payload")
)

// PayloadError carries the operator-facing reason for a rejected payload,
// e.g. "missing_payload:comment" or "event_not_supported:star".
type PayloadError struct {
	Reason string
	Err    error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Reason)
}

func (e *PayloadError) Unwrap() error {
	return e.Err
}

func malformed(reason string) error {
	return &PayloadError{Reason: reason, Err: ErrMalformedPayload}
}

func unsupported(kind string) error {
	return &PayloadError{Reason: "event_not_supported:" + kind, Err: ErrUnsupportedEvent}
}

// Comment is the nested comment or review that triggered the event.
type Comment struct {
	ID     int64
	Author string
	Body   string // clipped
	URL    string

	rawBody string
}

// NormalizedEvent is the canonical view of one supported delivery.
// It is built once by Normalize and only read afterwards.
type NormalizedEvent struct {
	Kind   EventKind
	Action string
	Repo   string
	Number int
	Title  string
	URL    string
	Author string
	Body   string // clipped, "(empty)" when absent
	Sender string

	// Comment is set for issue_comment, pull_request_review and
	// pull_request_review_comment.
	Comment *Comment

	IssueID       int64
	PullRequestID int64

	Raw json.RawMessage
}

// ReviewID returns the review id for pull_request_review events.
func (e *NormalizedEvent) ReviewID() int64 {
	if e.Kind == EventPullRequestReview && e.Comment != nil {
		return e.Comment.ID
	}
	return 0
}

// CommentID returns the comment id for comment-style events.
func (e *NormalizedEvent) CommentID() int64 {
	if e.Kind != EventPullRequestReview && e.Comment != nil {
		return e.Comment.ID
	}
	return 0
}
