package feed

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// MaxSummaryLength caps summaries forwarded to the agent, in runes.
const MaxSummaryLength = 600

// CleanSummary turns an HTML fragment into plain text, collapses
// whitespace and cuts the result to MaxSummaryLength runes.
func CleanSummary(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}

	text := fragment
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment)); err == nil {
		doc.Find("script, style, noscript").Remove()
		text = doc.Text()
	}

	text = strings.Join(strings.Fields(norm.NFC.String(text)), " ")
	return truncateRunes(text, MaxSummaryLength)
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:max])) + "…"
}
