package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const pairingHint = " (gateway device not paired; list devices and approve the pending pairing on the gateway)"

// Client calls the gateway's single tool-invocation endpoint.
type Client struct {
	endpoint   string
	token      string
	sessionKey string
	httpClient *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   strings.TrimRight(baseURL, "/") + "/tools/invoke",
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithSessionKey returns a copy of c that sends key with every invocation.
func (c *Client) WithSessionKey(key string) *Client {
	cp := *c
	cp.sessionKey = key
	return &cp
}

// Invoke posts req and returns the decoded response body. A non-JSON body
// is returned as a JSON string rather than failing the call.
func (c *Client) Invoke(ctx context.Context, req InvokeRequest) (any, error) {
	if req.Args == nil {
		req.Args = map[string]any{}
	}
	if req.SessionKey == "" {
		req.SessionKey = c.sessionKey
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode invoke request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create invoke request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &InvokeError{Tool: req.Tool, Message: err.Error(), Err: ErrGatewayUnavailable}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &InvokeError{Tool: req.Tool, Status: resp.StatusCode, Message: err.Error(), Err: ErrGatewayUnavailable}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		sentinel := ErrGatewayRejected
		if resp.StatusCode >= 500 {
			sentinel = ErrGatewayUnavailable
		}
		return nil, &InvokeError{
			Tool:   req.Tool,
			Status: resp.StatusCode,
			Body:   excerpt(raw),
			Err:    sentinel,
		}
	}

	var data any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			data = string(raw)
		}
	}

	if msg, failed := applicationError(data); failed {
		return nil, &InvokeError{
			Tool:        req.Tool,
			Status:      resp.StatusCode,
			Body:        excerpt(raw),
			Message:     withPairingHint(msg),
			Application: true,
			Err:         ErrGatewayRejected,
		}
	}

	return data, nil
}

// Forward spawns a session running task. When the gateway reports that
// sessions_spawn is not available it retries once with sessions/spawn.
// No other failure is retried.
func (c *Client) Forward(ctx context.Context, task Task) error {
	args := map[string]any{
		"label":   task.Label,
		"task":    task.Body,
		"cleanup": string(task.Cleanup),
	}
	if task.TimeoutSeconds > 0 {
		args["runTimeoutSeconds"] = task.TimeoutSeconds
	}

	start := time.Now()

	_, err := c.Invoke(ctx, InvokeRequest{Tool: ToolSessionsSpawn, Args: args})
	if err != nil && isToolUnavailable(err, ToolSessionsSpawn) {
		slog.Warn("Gateway lacks tool, retrying with legacy tool",
			"tool", ToolSessionsSpawn,
			"fallback", ToolSessions+"/"+ActionSpawn)
		_, err = c.Invoke(ctx, InvokeRequest{Tool: ToolSessions, Action: ActionSpawn, Args: args})
	}
	if err != nil {
		return fmt.Errorf("failed to forward task %s: %w", task.Label, err)
	}

	slog.Debug("Task forwarded",
		"label", task.Label,
		"duration", time.Since(start))
	return nil
}

func isToolUnavailable(err error, tool string) bool {
	var ie *InvokeError
	if !errors.As(err, &ie) {
		return false
	}
	return !ie.Application &&
		ie.Status == http.StatusNotFound &&
		strings.Contains(ie.Body, "Tool not available: "+tool)
}

// applicationError detects {ok:false} and result.details.status=="error".
func applicationError(data any) (string, bool) {
	root, ok := data.(map[string]any)
	if !ok {
		return "", false
	}

	if okVal, present := root["ok"]; present && okVal == false {
		switch e := root["error"].(type) {
		case string:
			if e != "" {
				return e, true
			}
		case map[string]any:
			if msg, _ := e["message"].(string); msg != "" {
				return msg, true
			}
		}
		return "invoke returned ok=false", true
	}

	result, _ := root["result"].(map[string]any)
	details, _ := result["details"].(map[string]any)
	if details != nil && details["status"] == "error" {
		if msg, _ := details["error"].(string); msg != "" {
			return msg, true
		}
		return "result.details.status=error", true
	}

	return "", false
}

func withPairingHint(msg string) string {
	if !strings.Contains(strings.ToLower(msg), "pairing required") {
		return msg
	}
	return msg + pairingHint
}

func excerpt(raw []byte) string {
	s := string(raw)
	if len(s) <= maxBodyExcerpt {
		return s
	}
	cut := maxBodyExcerpt
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
