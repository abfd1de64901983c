package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/go-shiori/go-readability"
)

// SummaryExtractor derives a summary from a full article page for sources
// whose feed entries carry none.
type SummaryExtractor struct{}

func NewSummaryExtractor() *SummaryExtractor {
	return &SummaryExtractor{}
}

func (e *SummaryExtractor) Run(data []byte, pageURL string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	var parsedURL *url.URL
	if pageURL != "" {
		if u, err := url.Parse(pageURL); err == nil {
			parsedURL = u
		}
	}

	article, err := readability.FromReader(bytes.NewReader(data), parsedURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	summary := CleanSummary(article.Excerpt)
	if summary == "" {
		summary = CleanSummary(article.TextContent)
	}
	if summary == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	slog.Debug("Summary extracted",
		"title", article.Title,
		"url", pageURL,
		"summary_length", len(summary))

	return summary, nil
}
