package github

import (
	"fmt"
	"strconv"
	"strings"
)

// DedupeKey prefers the transport delivery id. Without one it joins the
// stable identifiers of the event, never timestamps or free text.
func DedupeKey(ev *NormalizedEvent, delivery string) string {
	if delivery = strings.TrimSpace(delivery); delivery != "" {
		return "delivery:" + delivery
	}

	parts := []string{
		"e:" + string(ev.Kind),
		"r:" + ev.Repo,
		"n:" + strconv.Itoa(ev.Number),
		"a:" + ev.Action,
	}

	ids := []struct {
		name string
		id   int64
	}{
		{"issueId", ev.IssueID},
		{"prId", ev.PullRequestID},
		{"commentId", ev.CommentID()},
		{"reviewId", ev.ReviewID()},
	}
	for _, id := range ids {
		if id.id != 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", id.name, id.id))
		}
	}

	return strings.Join(parts, "|")
}
