package feed

import (
	"fmt"
	"hash/fnv"
	"log/slog"
)

// URLHash is the 64-bit FNV-1a of url as 16 hex digits, used to correlate
// forwarded links across log lines without repeating long URLs.
func URLHash(url string) string {
	h := fnv.New64a()
	h.Write([]byte(url))
	return fmt.Sprintf("%016x", h.Sum64())
}

// LogLinks writes one line per forwarded item.
func LogLinks(label string, items []Item) {
	for i, item := range items {
		slog.Info("Link forwarded",
			"session", label,
			"index", i+1,
			"source", item.Source,
			"title", item.Title,
			"url", item.URL,
			"url_hash", URLHash(item.URL))
	}
}
