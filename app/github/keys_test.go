package github

import (
	"strings"
	"testing"
	"time"
)

func TestDedupeKey_PrefersDelivery(t *testing.T) {
	ev := mustNormalize(t, "issue_comment", issueCommentJSON)

	if got := DedupeKey(ev, "72d3162e-cc78-11e3-81ab-4c9367dc0958"); got != "delivery:72d3162e-cc78-11e3-81ab-4c9367dc0958" {
		t.Errorf("Unexpected key: %s", got)
	}
}

func TestDedupeKey_Composite(t *testing.T) {
	ev := mustNormalize(t, "issue_comment", issueCommentJSON)

	want := "e:issue_comment|r:octo/hello|n:7|a:created|issueId:101|commentId:555"
	if got := DedupeKey(ev, ""); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestDedupeKey_IgnoresVolatileFields(t *testing.T) {
	a := mustNormalize(t, "pull_request_review",
		`{"action":"submitted","repository":{"full_name":"o/r"},"pull_request":{"id":5,"number":2},"review":{"id":8,"body":"first","submitted_at":"2024-01-01T00:00:00Z"}}`)
	b := mustNormalize(t, "pull_request_review",
		`{"action":"submitted","repository":{"full_name":"o/r"},"pull_request":{"id":5,"number":2},"review":{"id":8,"body":"edited text","submitted_at":"2024-01-02T00:00:00Z"}}`)

	if DedupeKey(a, "") != DedupeKey(b, "") {
		t.Errorf("Expected equal keys, got %q and %q", DedupeKey(a, ""), DedupeKey(b, ""))
	}
	if !strings.HasSuffix(DedupeKey(a, ""), "prId:5|reviewId:8") {
		t.Errorf("Unexpected key: %s", DedupeKey(a, ""))
	}
}

func TestTaskLabelAndBody(t *testing.T) {
	ev := mustNormalize(t, "issue_comment", issueCommentJSON)

	if got := TaskLabel(ev); got != "webhook:github:octo/hello#7:issue_comment:created" {
		t.Errorf("Unexpected label: %s", got)
	}

	body, err := TaskBody(ev, "d-1", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), signature)
	if err != nil {
		t.Fatalf("TaskBody failed: %v", err)
	}

	for _, want := range []string{
		"[Webhook] GitHub event received (issue_comment)",
		"issue: #7 Crash on start",
		"comment_author: carol",
		`"source":"github"`,
		`"delivery":"d-1"`,
		`"receivedAt":"2025-01-02T03:04:05Z"`,
		"gh issue comment 7 --repo octo/hello",
		signature,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected task body to contain %q", want)
		}
	}
}

func TestTaskBody_SignatureVerbatim(t *testing.T) {
	ev := mustNormalize(t, "issue_comment", issueCommentJSON)
	sig := `— bot "helper" \ v2`

	body, err := TaskBody(ev, "d-1", time.Now(), sig)
	if err != nil {
		t.Fatalf("TaskBody failed: %v", err)
	}

	if !strings.Contains(body, "“"+sig+"”") {
		t.Errorf("Expected signature to appear unescaped, got body %q", body)
	}
	if strings.Contains(body, `\"helper\"`) {
		t.Error("Expected no escaped quotes in the signature")
	}
	if !strings.Contains(EventText(ev, sig), sig) {
		t.Error("Expected event text to carry the signature verbatim")
	}
}
