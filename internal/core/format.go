package core

import (
	"fmt"
	"strings"

	"github.com/valter-silva-au/kiya/pkg/models"
)

const (
	searchPreamble   = "Based on web search results:\n\n"
	searchDisclaimer = "Note: This information was compiled from search results and may not be complete or entirely accurate."
	// MaxFormattedResults caps how many search hits are rendered in a reply.
	MaxFormattedResults = 3
)

// FormatSearchResults renders up to the top three results as a numbered
// digest followed by an accuracy disclaimer. An empty result set renders a
// short "nothing found" reply.
func FormatSearchResults(query string, results []models.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("I couldn't find any information about %q.", query)
	}
	if len(results) > MaxFormattedResults {
		results = results[:MaxFormattedResults]
	}

	var b strings.Builder
	b.WriteString(searchPreamble)
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s", i+1, r.Title)
		if r.Source != "" {
			fmt.Fprintf(&b, " (%s)", r.Source)
		}
		fmt.Fprintf(&b, "\n%s\n\n", r.Snippet)
	}
	b.WriteString(searchDisclaimer)
	return b.String()
}

// FormatTaskList renders tasks as a 1-indexed list with completion glyphs.
func FormatTaskList(tasks []models.Task) string {
	if len(tasks) == 0 {
		return "You don't have any tasks yet. Try adding some with 'Add task [task description]'."
	}
	var b strings.Builder
	b.WriteString("📋 Your tasks:")
	for i, t := range tasks {
		glyph := "○"
		if t.Completed {
			glyph = "✓"
		}
		fmt.Fprintf(&b, "\n%d. %s %s", i+1, glyph, t.Title)
	}
	return b.String()
}
