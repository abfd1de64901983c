package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses an RSS, Atom or JSON feed document into items in feed order.
// Entries without a link are dropped since the link is the fingerprint.
func (p *Parser) Run(data []byte, source string) ([]Item, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		if entry == nil {
			continue
		}
		item := p.normalizeItem(entry, source)
		if item.URL == "" {
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

func (p *Parser) normalizeItem(entry *gofeed.Item, source string) Item {
	item := Item{
		Source:  source,
		Title:   strings.TrimSpace(entry.Title),
		URL:     strings.TrimSpace(cmp.Or(entry.Link, firstLink(entry.Links))),
		Summary: CleanSummary(cmp.Or(entry.Description, entry.Content)),
	}

	if entry.PublishedParsed != nil {
		item.PublishedAt = entry.PublishedParsed
	} else if entry.UpdatedParsed != nil {
		item.PublishedAt = entry.UpdatedParsed
	}

	if item.Title == "" {
		item.Title = item.URL
	}

	return item
}

func firstLink(links []string) string {
	for _, l := range links {
		if l != "" {
			return l
		}
	}
	return ""
}
