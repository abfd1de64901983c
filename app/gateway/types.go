package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrGatewayUnavailable covers transport failures, timeouts and 5xx responses.
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	// ErrGatewayRejected covers 4xx responses and application-level failures.
	ErrGatewayRejected = errors.New("gateway rejected request")
)

const (
	ToolSessionsSpawn = "sessions_spawn"
	ToolSessions      = "sessions"
	ActionSpawn       = "spawn"

	maxBodyExcerpt = 500
)

// CleanupPolicy tells the gateway what to do with a finished session.
type CleanupPolicy string

const (
	CleanupKeep   CleanupPolicy = "keep"
	CleanupDelete CleanupPolicy = "delete"
)

// Task is one unit of work handed to a spawned session.
type Task struct {
	Label          string
	Body           string
	Cleanup        CleanupPolicy
	TimeoutSeconds int
}

// InvokeRequest is the body of POST /tools/invoke.
type InvokeRequest struct {
	Tool       string         `json:"tool"`
	Action     string         `json:"action,omitempty"`
	Args       map[string]any `json:"args"`
	SessionKey string         `json:"sessionKey,omitempty"`
}

// InvokeError describes a failed invocation. Status is 0 when no response
// was received. Application is set when the transport succeeded but the
// gateway reported a failure in the body.
type InvokeError struct {
	Tool        string
	Status      int
	Body        string
	Message     string
	Application bool
	Err         error
}

func (e *InvokeError) Error() string {
	switch {
	case e.Application:
		return fmt.Sprintf("invoke_internal_error tool=%s %s", e.Tool, e.Message)
	case e.Status == 0:
		return fmt.Sprintf("invoke_failed tool=%s: %s", e.Tool, e.Message)
	default:
		return fmt.Sprintf("invoke_failed tool=%s status=%d body=%s", e.Tool, e.Status, e.Body)
	}
}

func (e *InvokeError) Unwrap() error {
	return e.Err
}

// Kind returns a short label for metrics and logs.
func (e *InvokeError) Kind() string {
	switch {
	case e.Application:
		return "application"
	case e.Status == 0:
		return "transport"
	case e.Status >= 500:
		return "server"
	default:
		return "rejected"
	}
}
