package feed

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ParsePublished accepts the date formats feeds and clients send in
// practice. Unparseable input yields nil rather than an error.
func ParsePublished(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// Fingerprint is the durable dedupe key of an item: its trimmed URL.
func Fingerprint(url string) string {
	return strings.TrimSpace(url)
}
