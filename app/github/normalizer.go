package github

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	// MaxTextLength bounds every free-text field, in runes.
	MaxTextLength = 8000
	emptyText     = "(empty)"
	unknownActor  = "unknown"
)

type actor struct {
	Login string `json:"login"`
}

type repository struct {
	FullName string `json:"full_name"`
}

type subject struct {
	ID      int64   `json:"id"`
	Number  int     `json:"number"`
	Title   string  `json:"title"`
	Body    *string `json:"body"`
	HTMLURL string  `json:"html_url"`
	User    *actor  `json:"user"`
}

type comment struct {
	ID      int64   `json:"id"`
	Body    *string `json:"body"`
	HTMLURL string  `json:"html_url"`
	User    *actor  `json:"user"`
}

// envelope holds the fields every supported event carries.
type envelope struct {
	Action     string      `json:"action"`
	Repository *repository `json:"repository"`
	Sender     *actor      `json:"sender"`
}

// payload is implemented by one struct per supported event kind.
// Each variant declares only the nested objects its kind requires.
type payload interface {
	base() *envelope
	normalize(ev *NormalizedEvent) error
}

type issuesPayload struct {
	envelope
	Issue *subject `json:"issue"`
}

type issueCommentPayload struct {
	envelope
	Issue   *subject `json:"issue"`
	Comment *comment `json:"comment"`
}

type pullRequestPayload struct {
	envelope
	PullRequest *subject `json:"pull_request"`
}

type pullRequestReviewPayload struct {
	envelope
	PullRequest *subject `json:"pull_request"`
	Review      *comment `json:"review"`
}

type pullRequestReviewCommentPayload struct {
	envelope
	PullRequest *subject `json:"pull_request"`
	Comment     *comment `json:"comment"`
}

func (p *envelope) base() *envelope { return p }

func (p *issuesPayload) normalize(ev *NormalizedEvent) error {
	return applyIssue(ev, p.Issue)
}

func (p *issueCommentPayload) normalize(ev *NormalizedEvent) error {
	if err := applyIssue(ev, p.Issue); err != nil {
		return err
	}
	return applyComment(ev, p.Comment, "comment")
}

func (p *pullRequestPayload) normalize(ev *NormalizedEvent) error {
	return applyPullRequest(ev, p.PullRequest)
}

func (p *pullRequestReviewPayload) normalize(ev *NormalizedEvent) error {
	if err := applyPullRequest(ev, p.PullRequest); err != nil {
		return err
	}
	return applyComment(ev, p.Review, "review")
}

func (p *pullRequestReviewCommentPayload) normalize(ev *NormalizedEvent) error {
	if err := applyPullRequest(ev, p.PullRequest); err != nil {
		return err
	}
	return applyComment(ev, p.Comment, "comment")
}

// newPayload maps an event kind to its payload variant.
func newPayload(kind EventKind) (payload, bool) {
	switch kind {
	case EventIssues:
		return &issuesPayload{}, true
	case EventIssueComment:
		return &issueCommentPayload{}, true
	case EventPullRequest:
		return &pullRequestPayload{}, true
	case EventPullRequestReview:
		return &pullRequestReviewPayload{}, true
	case EventPullRequestReviewComment:
		return &pullRequestReviewCommentPayload{}, true
	}
	return nil, false
}

// IsSupported reports whether kind can be normalized.
func IsSupported(kind string) bool {
	_, ok := newPayload(EventKind(kind))
	return ok
}

// Normalize validates raw against the fixed shape for kind and returns the
// canonical event. Errors wrap ErrUnsupportedEvent or ErrMalformedPayload
// inside a *PayloadError naming the missing field.
func Normalize(kind string, raw []byte) (*NormalizedEvent, error) {
	p, ok := newPayload(EventKind(kind))
	if !ok {
		return nil, unsupported(kind)
	}

	if err := json.Unmarshal(raw, p); err != nil {
		return nil, malformed("invalid_payload")
	}

	env := p.base()
	if env.Action == "" {
		return nil, malformed("missing_payload:action")
	}
	if env.Repository == nil || env.Repository.FullName == "" {
		return nil, malformed("missing_payload:repository.full_name")
	}

	ev := &NormalizedEvent{
		Kind:   EventKind(kind),
		Action: env.Action,
		Repo:   env.Repository.FullName,
		Raw:    json.RawMessage(raw),
	}
	if env.Sender != nil {
		ev.Sender = env.Sender.Login
	}

	if err := p.normalize(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func applyIssue(ev *NormalizedEvent, issue *subject) error {
	if issue == nil {
		return malformed("missing_payload:issue")
	}
	applySubject(ev, issue)
	ev.IssueID = issue.ID
	return nil
}

func applyPullRequest(ev *NormalizedEvent, pr *subject) error {
	if pr == nil {
		return malformed("missing_payload:pull_request")
	}
	applySubject(ev, pr)
	ev.PullRequestID = pr.ID
	return nil
}

func applySubject(ev *NormalizedEvent, s *subject) {
	ev.Number = s.Number
	ev.Title = s.Title
	ev.URL = s.HTMLURL
	ev.Author = login(s.User)
	ev.Body = Clip(deref(s.Body))
}

func applyComment(ev *NormalizedEvent, c *comment, field string) error {
	if c == nil {
		return malformed("missing_payload:" + field)
	}
	body := deref(c.Body)
	ev.Comment = &Comment{
		ID:      c.ID,
		Author:  login(c.User),
		Body:    Clip(body),
		URL:     c.HTMLURL,
		rawBody: body,
	}
	return nil
}

// Clip trims and NFC-normalizes text, then cuts it to MaxTextLength runes.
// Empty input becomes "(empty)".
func Clip(text string) string {
	t := strings.TrimSpace(norm.NFC.String(text))
	if t == "" {
		return emptyText
	}
	if utf8.RuneCountInString(t) <= MaxTextLength {
		return t
	}
	return string([]rune(t)[:MaxTextLength])
}

func login(a *actor) string {
	if a == nil || a.Login == "" {
		return unknownActor
	}
	return a.Login
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
