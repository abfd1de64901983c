package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestSubmitter(store *memoryStore, fwd *recordingForwarder) *Submitter {
	s := NewSubmitter(staticConfig{config: testConfig()}, store, fwd)
	s.now = func() time.Time { return testNow }
	return s
}

func TestSubmit_DuplicateInsideBatch(t *testing.T) {
	store := newMemoryStore()
	fwd := &recordingForwarder{}

	result, err := newTestSubmitter(store, fwd).Submit(context.Background(), SubmitRequest{
		SourceName: "reader",
		FeedItems: []SubmitItem{
			{Title: "One", URL: "https://x.example/1", Summary: "<p>Hello <b>world</b></p>"},
			{Title: "One again", URL: "https://x.example/1"},
		},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if result.Processed != 1 || result.Rejected != 1 {
		t.Errorf("Expected processed 1 rejected 1, got %+v", result)
	}
	if result.Message != "Processed 1 item(s), rejected 1 item(s)" {
		t.Errorf("Unexpected message %q", result.Message)
	}
	if fwd.count() != 1 {
		t.Fatalf("Expected 1 forward, got %d", fwd.count())
	}

	task := fwd.last()
	if task.Label != "traveler:submit:reader:2025-03-10" {
		t.Errorf("Unexpected label %q", task.Label)
	}
	if !strings.Contains(task.Body, "Hello world") {
		t.Error("Expected cleaned summary in the prompt")
	}
	if !store.has("https://x.example/1") {
		t.Error("Expected the item to be marked")
	}
}

func TestSubmit_RejectsIncompleteAndSeenItems(t *testing.T) {
	store := newMemoryStore()
	store.seen["https://x.example/old"] = testNow.Add(-24 * time.Hour)
	fwd := &recordingForwarder{}

	result, err := newTestSubmitter(store, fwd).Submit(context.Background(), SubmitRequest{
		SourceName: "reader",
		FeedItems: []SubmitItem{
			{Title: "", URL: "https://x.example/notitle"},
			{Title: "No url"},
			{Title: "Old", URL: "https://x.example/old"},
			{Title: "New", URL: "https://x.example/new", PublishedAt: "2025-03-09T08:00:00Z"},
		},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if result.Processed != 1 || result.Rejected != 3 {
		t.Errorf("Expected processed 1 rejected 3, got %+v", result)
	}
	if !strings.Contains(fwd.last().Body, "2025-03-09T08:00:00Z") {
		t.Error("Expected published time in the prompt")
	}
}

func TestSubmit_AllRejectedForwardsNothing(t *testing.T) {
	fwd := &recordingForwarder{}

	result, err := newTestSubmitter(newMemoryStore(), fwd).Submit(context.Background(), SubmitRequest{
		SourceName: "reader",
		FeedItems:  []SubmitItem{{Title: "missing url"}},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !result.OK || result.Processed != 0 || result.Rejected != 1 {
		t.Errorf("Unexpected result %+v", result)
	}
	if fwd.count() != 0 {
		t.Error("Expected no forward")
	}
}

func TestSubmit_Validation(t *testing.T) {
	tooMany := make([]SubmitItem, MaxSubmitItems+1)

	tests := []struct {
		name   string
		req    SubmitRequest
		reason string
	}{
		{"missing source", SubmitRequest{FeedItems: []SubmitItem{{Title: "a", URL: "b"}}}, "source_name and feed_items are required"},
		{"missing items", SubmitRequest{SourceName: "reader"}, "source_name and feed_items are required"},
		{"empty items", SubmitRequest{SourceName: "reader", FeedItems: []SubmitItem{}}, "feed_items cannot be empty"},
		{"too many", SubmitRequest{SourceName: "reader", FeedItems: tooMany}, "maximum 100 items per request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestSubmitter(newMemoryStore(), &recordingForwarder{}).Submit(context.Background(), tt.req)

			var serr *SubmissionError
			if !errors.As(err, &serr) {
				t.Fatalf("Expected SubmissionError, got %v", err)
			}
			if serr.Reason != tt.reason {
				t.Errorf("Expected reason %q, got %q", tt.reason, serr.Reason)
			}
			if !errors.Is(err, ErrInvalidSubmission) {
				t.Error("Expected error to wrap ErrInvalidSubmission")
			}
		})
	}
}

func TestSubmit_ForwardFailureMarksNothing(t *testing.T) {
	store := newMemoryStore()
	fwd := &recordingForwarder{err: errGatewayDown}

	_, err := newTestSubmitter(store, fwd).Submit(context.Background(), SubmitRequest{
		SourceName: "reader",
		FeedItems:  []SubmitItem{{Title: "One", URL: "https://x.example/1"}},
	})
	if err == nil {
		t.Fatal("Expected forward failure")
	}
	if store.size() != 0 {
		t.Error("Expected nothing marked")
	}
}
