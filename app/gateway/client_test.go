package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"
)

type recordedCall struct {
	Auth string
	Req  InvokeRequest
}

// fakeGateway answers each call with the next handler in the list.
func fakeGateway(t *testing.T, responders ...func(w http.ResponseWriter)) (*httptest.Server, *[]recordedCall) {
	t.Helper()

	var mu sync.Mutex
	calls := []recordedCall{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tools/invoke" || r.Method != http.MethodPost {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}

		var req InvokeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}

		mu.Lock()
		idx := len(calls)
		calls = append(calls, recordedCall{Auth: r.Header.Get("Authorization"), Req: req})
		mu.Unlock()

		if idx >= len(responders) {
			t.Errorf("Unexpected call #%d", idx+1)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		responders[idx](w)
	}))
	t.Cleanup(srv.Close)

	return srv, &calls
}

func respond(status int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func testTask() Task {
	return Task{Label: "webhook:github:o/r#1:issues:opened", Body: "do it", Cleanup: CleanupKeep, TimeoutSeconds: 600}
}

func TestForward_Success(t *testing.T) {
	srv, calls := fakeGateway(t, respond(200, `{"ok":true,"result":{"details":{"status":"accepted"}}}`))
	client := NewClient(srv.URL+"/", "tok", time.Second)

	if err := client.Forward(context.Background(), testTask()); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	if len(*calls) != 1 {
		t.Fatalf("Expected 1 call, got %d", len(*calls))
	}
	call := (*calls)[0]
	if call.Auth != "Bearer tok" {
		t.Errorf("Expected bearer token, got %q", call.Auth)
	}
	if call.Req.Tool != ToolSessionsSpawn || call.Req.Action != "" {
		t.Errorf("Unexpected tool %s/%s", call.Req.Tool, call.Req.Action)
	}
	if call.Req.Args["label"] != "webhook:github:o/r#1:issues:opened" || call.Req.Args["cleanup"] != "keep" {
		t.Errorf("Unexpected args: %v", call.Req.Args)
	}
	if call.Req.Args["runTimeoutSeconds"] != float64(600) {
		t.Errorf("Expected runTimeoutSeconds 600, got %v", call.Req.Args["runTimeoutSeconds"])
	}
}

func TestForward_FallsBackWhenToolMissing(t *testing.T) {
	srv, calls := fakeGateway(t,
		respond(404, `{"ok":false,"error":"Tool not available: sessions_spawn"}`),
		respond(200, `{"ok":true}`),
	)
	client := NewClient(srv.URL, "tok", time.Second)

	if err := client.Forward(context.Background(), testTask()); err != nil {
		t.Fatalf("Forward failed: %v", err)
	}

	if len(*calls) != 2 {
		t.Fatalf("Expected 2 calls, got %d", len(*calls))
	}
	second := (*calls)[1].Req
	if second.Tool != ToolSessions || second.Action != ActionSpawn {
		t.Errorf("Expected sessions/spawn fallback, got %s/%s", second.Tool, second.Action)
	}
}

func TestForward_OtherFailuresAreNotRetried(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		kind     string
	}{
		{"other 404", 404, `{"error":"route not found"}`, ErrGatewayRejected, "rejected"},
		{"unauthorized", 401, `unauthorized`, ErrGatewayRejected, "rejected"},
		{"server error", 503, `<html>down</html>`, ErrGatewayUnavailable, "server"},
		{"application ok=false", 200, `{"ok":false,"error":{"message":"quota exceeded"}}`, ErrGatewayRejected, "application"},
		{"nested status error", 200, `{"ok":true,"result":{"details":{"status":"error","error":"spawn failed"}}}`, ErrGatewayRejected, "application"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := fakeGateway(t, respond(tt.status, tt.body))
			client := NewClient(srv.URL, "tok", time.Second)

			err := client.Forward(context.Background(), testTask())
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("Expected %v, got %v", tt.sentinel, err)
			}

			var ie *InvokeError
			if !errors.As(err, &ie) {
				t.Fatalf("Expected *InvokeError, got %T", err)
			}
			if ie.Kind() != tt.kind {
				t.Errorf("Expected kind %s, got %s", tt.kind, ie.Kind())
			}
			if len(*calls) != 1 {
				t.Errorf("Expected exactly 1 call, got %d", len(*calls))
			}
		})
	}
}

func TestInvoke_NonJSONBodyIsOpaque(t *testing.T) {
	srv, _ := fakeGateway(t, respond(200, `spawned`))
	client := NewClient(srv.URL, "tok", time.Second)

	data, err := client.Invoke(context.Background(), InvokeRequest{Tool: "noop"})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if data != "spawned" {
		t.Errorf("Expected opaque string body, got %v", data)
	}
}

func TestInvoke_TruncatesBodyExcerpt(t *testing.T) {
	srv, _ := fakeGateway(t, respond(400, strings.Repeat("x", 2000)))
	client := NewClient(srv.URL, "tok", time.Second)

	_, err := client.Invoke(context.Background(), InvokeRequest{Tool: "noop"})

	var ie *InvokeError
	if !errors.As(err, &ie) {
		t.Fatalf("Expected *InvokeError, got %v", err)
	}
	if len(ie.Body) != maxBodyExcerpt {
		t.Errorf("Expected body excerpt of %d bytes, got %d", maxBodyExcerpt, len(ie.Body))
	}
	if !strings.Contains(err.Error(), "status=400") {
		t.Errorf("Expected status in error, got %q", err.Error())
	}
}

func TestInvoke_ExcerptKeepsRunesWhole(t *testing.T) {
	// "é" is two bytes; an odd prefix pushes one across the cut.
	srv, _ := fakeGateway(t, respond(400, "x"+strings.Repeat("é", 600)))
	client := NewClient(srv.URL, "tok", time.Second)

	_, err := client.Invoke(context.Background(), InvokeRequest{Tool: "noop"})

	var ie *InvokeError
	if !errors.As(err, &ie) {
		t.Fatalf("Expected *InvokeError, got %v", err)
	}
	if !utf8.ValidString(ie.Body) {
		t.Error("Expected excerpt to be valid UTF-8")
	}
	if len(ie.Body) != maxBodyExcerpt-1 {
		t.Errorf("Expected excerpt of %d bytes, got %d", maxBodyExcerpt-1, len(ie.Body))
	}
}

func TestInvoke_PairingHint(t *testing.T) {
	srv, _ := fakeGateway(t, respond(200, `{"ok":false,"error":"Pairing required for this device"}`))
	client := NewClient(srv.URL, "tok", time.Second)

	_, err := client.Invoke(context.Background(), InvokeRequest{Tool: "noop"})
	if err == nil || !strings.Contains(err.Error(), "not paired") {
		t.Errorf("Expected pairing hint, got %v", err)
	}
}

func TestInvoke_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "tok", 20*time.Millisecond)

	_, err := client.Invoke(context.Background(), InvokeRequest{Tool: "noop"})
	if !errors.Is(err, ErrGatewayUnavailable) {
		t.Fatalf("Expected ErrGatewayUnavailable, got %v", err)
	}

	var ie *InvokeError
	if errors.As(err, &ie) && ie.Kind() != "transport" {
		t.Errorf("Expected transport kind, got %s", ie.Kind())
	}
}

func TestInvoke_SessionKey(t *testing.T) {
	srv, calls := fakeGateway(t, respond(200, `{"ok":true}`))
	client := NewClient(srv.URL, "tok", time.Second).WithSessionKey("traveler-2025-01-02")

	if _, err := client.Invoke(context.Background(), InvokeRequest{Tool: "noop"}); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got := (*calls)[0].Req.SessionKey; got != "traveler-2025-01-02" {
		t.Errorf("Expected session key, got %q", got)
	}
}
