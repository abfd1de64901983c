package github

import (
	"strings"
)

// DefaultIgnoredActors are always ignored in addition to configured ones.
var DefaultIgnoredActors = []string{"github-actions[bot]"}

// DefaultAllowedActions lists the actionable actions per event kind.
// Kinds missing from the map pass the action check unfiltered.
var DefaultAllowedActions = map[EventKind][]string{
	EventIssues:                   {"opened"},
	EventPullRequest:              {"opened", "reopened", "ready_for_review"},
	EventIssueComment:             {"created"},
	EventPullRequestReview:        {"submitted"},
	EventPullRequestReviewComment: {"created"},
}

// Ignore reasons without a variable suffix.
const ReasonSelfComment = "self_comment_signature"

// Policy decides whether a normalized event is actionable.
type Policy struct {
	replySignature string
	ignoredActors  map[string]struct{}
	allowedActions map[EventKind]map[string]struct{}
}

// NewPolicy builds a policy from the reply signature and the configured
// ignore list. DefaultIgnoredActors are always included.
func NewPolicy(replySignature string, ignoredActors []string) *Policy {
	p := &Policy{
		replySignature: strings.TrimSpace(replySignature),
		ignoredActors:  make(map[string]struct{}),
		allowedActions: make(map[EventKind]map[string]struct{}),
	}

	for _, a := range append(append([]string{}, ignoredActors...), DefaultIgnoredActors...) {
		if a = strings.TrimSpace(a); a != "" {
			p.ignoredActors[a] = struct{}{}
		}
	}

	for kind, actions := range DefaultAllowedActions {
		set := make(map[string]struct{}, len(actions))
		for _, a := range actions {
			set[a] = struct{}{}
		}
		p.allowedActions[kind] = set
	}

	return p
}

// ShouldIgnore returns a non-empty reason when ev must not be forwarded.
// Checks run in order and stop at the first match: self-loop signature,
// actor ignore-list, action allow-list.
func (p *Policy) ShouldIgnore(ev *NormalizedEvent) string {
	if ev.Comment != nil && p.replySignature != "" &&
		strings.Contains(ev.Comment.rawBody, p.replySignature) {
		return ReasonSelfComment
	}

	if ev.Comment != nil && p.isIgnored(ev.Comment.Author) {
		return "comment_author_ignored:" + ev.Comment.Author
	}
	if p.isIgnored(ev.Author) {
		return "author_ignored:" + ev.Author
	}
	if p.isIgnored(ev.Sender) {
		return "sender_ignored:" + ev.Sender
	}

	if allowed, ok := p.allowedActions[ev.Kind]; ok {
		if _, ok := allowed[ev.Action]; !ok {
			return "action_not_supported:" + ev.Action
		}
	}

	return ""
}

func (p *Policy) isIgnored(login string) bool {
	if login == "" {
		return false
	}
	_, ok := p.ignoredActors[login]
	return ok
}
