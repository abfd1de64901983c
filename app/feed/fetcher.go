package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const maxDocumentSize = 10 << 20

// Fetcher downloads a source and turns it into items.
type Fetcher struct {
	httpClient *http.Client
	parser     *Parser
	extractor  *SummaryExtractor
	userAgent  string
}

func NewFetcher(httpClient *http.Client, parser *Parser, extractor *SummaryExtractor, userAgent string) *Fetcher {
	return &Fetcher{
		httpClient: httpClient,
		parser:     parser,
		extractor:  extractor,
		userAgent:  userAgent,
	}
}

// Fetch returns at most src.Limit items in feed order. Article summary
// extraction failures are logged and leave the summary empty.
func (f *Fetcher) Fetch(ctx context.Context, src Source) ([]Item, error) {
	timeout := time.Duration(src.Timeout) * time.Second
	if timeout <= 0 {
		timeout = DefaultSourceTimeout * time.Second
	}

	data, err := f.get(ctx, src.URL, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	items, err := f.parser.Run(data, src.Name)
	if err != nil {
		return nil, err
	}

	if src.Limit > 0 && len(items) > src.Limit {
		items = items[:src.Limit]
	}

	if src.ExtractSummary && f.extractor != nil {
		for i := range items {
			if items[i].Summary != "" {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			items[i].Summary = f.extractSummary(ctx, items[i].URL, timeout)
		}
	}

	return items, nil
}

func (f *Fetcher) extractSummary(ctx context.Context, pageURL string, timeout time.Duration) string {
	page, err := f.get(ctx, pageURL, timeout)
	if err != nil {
		slog.Warn("Failed to fetch article for summary", "url", pageURL, "error", err)
		return ""
	}

	summary, err := f.extractor.Run(page, pageURL)
	if err != nil {
		slog.Warn("Failed to extract summary", "url", pageURL, "error", err)
		return ""
	}
	return summary
}

func (f *Fetcher) get(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
