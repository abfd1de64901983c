package feed

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SessionLabel names the daily curator session, e.g. "traveler-2025-01-02".
func SessionLabel(now time.Time) string {
	return "traveler-" + now.UTC().Format("2006-01-02")
}

// SubmissionLabel names the session spawned for one pushed batch.
func SubmissionLabel(source string, now time.Time) string {
	return fmt.Sprintf("traveler:submit:%s:%s", source, now.UTC().Format("2006-01-02"))
}

// CuratorPrompt renders the instruction for the agent that reviews items.
// sourceLabel is empty for scheduled runs spanning every source.
func CuratorPrompt(config *Config, items []Item, sourceLabel string) (string, error) {
	encoded, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode items: %w", err)
	}

	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, an information curation assistant.\n", config.Persona.Name)
	if config.Persona.Description != "" {
		fmt.Fprintf(&b, "Persona: %s\n", config.Persona.Description)
	}
	fmt.Fprintf(&b, "Voice: %s\n\n", config.Persona.Voice)

	writeList(&b, "Your principles:", config.Persona.Boundaries)
	writeList(&b, "Interests:", config.Interests.Include)
	writeList(&b, "Not interested in:", config.Interests.Exclude)

	b.WriteString("---\n\n")
	if sourceLabel != "" {
		fmt.Fprintf(&b, "Below are new items from %q (JSON):\n\n", sourceLabel)
	} else {
		b.WriteString("Below are new items collected from all subscribed sources (JSON):\n\n")
	}
	b.WriteString("```json\n")
	b.Write(encoded)
	b.WriteString("\n```\n\n")

	visibility := "private"
	if config.Output.Public {
		visibility = "public"
	}

	b.WriteString("Please:\n")
	b.WriteString("1. Review these items and pick the ones worth attention given the interests above.\n")
	b.WriteString("2. For each valuable item, create a note with the note tool.\n")
	b.WriteString("3. Keep note titles short and clear.\n")
	b.WriteString("4. The note body is free-form but MUST include the original link.\n")
	fmt.Fprintf(&b, "5. Note tags: %s\n", strings.Join(config.Output.Tags, ", "))
	fmt.Fprintf(&b, "6. Set every note to %s.\n\n", visibility)
	b.WriteString("There is no need to note every item, only the genuinely valuable ones. Finish with a short summary.")

	return b.String(), nil
}

func writeList(b *strings.Builder, heading string, entries []string) {
	if len(entries) == 0 {
		return
	}
	b.WriteString(heading)
	b.WriteString("\n")
	for _, e := range entries {
		fmt.Fprintf(b, "- %s\n", e)
	}
	b.WriteString("\n")
}
