// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pdiddy/litwatch/pkg/types"
)

// FormatTable writes entries as a human-readable table to w.
func FormatTable(entries []Entry, w io.Writer) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No papers found.")
		return
	}

	fmt.Fprintf(w, "%-5s  %-2s  %-54s  %-10s  %-8s  %-7s  %s\n",
		"Score", "", "Title", "Published", "Source", "Status", "Key")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for _, entry := range entries {
		score := "-"
		status := "pending"
		if e := entry.Enrichment; e != nil {
			if e.Status == types.ScoringScored {
				score = fmt.Sprintf("%d/10", e.RelevanceScore)
				status = "scored"
			} else {
				status = "failed"
			}
		}
		star := ""
		if entry.Annotation != nil && entry.Annotation.Starred {
			star = "*"
		}
		fmt.Fprintf(w, "%-5s  %-2s  %-54s  %-10s  %-8s  %-7s  %s\n",
			score, star, truncate(entry.Paper.Title, 54),
			entry.Paper.PublishedAt.Format(dateLayout),
			entry.Paper.Source, status, entry.Paper.IdentityKey)
	}

	fmt.Fprintf(w, "\n%d papers\n", len(entries))
}

// FormatJSON writes entries as indented JSON to w.
func FormatJSON(entries []Entry, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// FormatAuthors joins author names for display, eliding everything
// past maxShow with "et al.".
func FormatAuthors(authors []string, maxShow int) string {
	if len(authors) == 0 {
		return "unknown authors"
	}
	if maxShow > 0 && len(authors) > maxShow {
		return strings.Join(authors[:maxShow], ", ") + " et al."
	}
	return strings.Join(authors, ", ")
}

// Markdown renders entries as a digest document, newest first in the
// order given. Pending and failed papers render without score or
// summary lines so the digest stays useful mid-pipeline.
func Markdown(entries []Entry, generatedAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Literature digest\n\n")
	fmt.Fprintf(&b, "Generated %s. %d papers.\n", generatedAt.UTC().Format(dateLayout), len(entries))

	for _, entry := range entries {
		title := entry.Paper.Title
		if title == "" {
			title = "(untitled)"
		}
		if entry.Annotation != nil && entry.Annotation.Starred {
			title = title + " [starred]"
		}
		fmt.Fprintf(&b, "\n## %s\n\n", title)

		if e := entry.Enrichment; e != nil && e.Status == types.ScoringScored {
			fmt.Fprintf(&b, "- Score: %d/10\n", e.RelevanceScore)
		}
		fmt.Fprintf(&b, "- Authors: %s\n", FormatAuthors(entry.Paper.Authors, 3))
		if entry.Paper.Journal != "" {
			fmt.Fprintf(&b, "- Journal: %s\n", entry.Paper.Journal)
		}
		date := entry.Paper.PublishedAt.Format(dateLayout)
		if entry.Paper.DateEstimated {
			date += " (estimated)"
		}
		fmt.Fprintf(&b, "- Published: %s\n", date)
		fmt.Fprintf(&b, "- Source: %s\n", entry.Paper.Source)
		if entry.Paper.ExternalURL != "" {
			fmt.Fprintf(&b, "- Link: %s\n", entry.Paper.ExternalURL)
		}
		if e := entry.Enrichment; e != nil && len(e.Tags) > 0 {
			fmt.Fprintf(&b, "- Tags: %s\n", strings.Join(e.Tags, ", "))
		}

		if e := entry.Enrichment; e != nil && e.Status == types.ScoringScored {
			if e.KeyFinding != "" {
				fmt.Fprintf(&b, "\nKey finding: %s\n", e.KeyFinding)
			}
			if e.Summary != "" {
				fmt.Fprintf(&b, "\n%s\n", e.Summary)
			}
		}
		if entry.Annotation != nil && entry.Annotation.Note != "" {
			fmt.Fprintf(&b, "\nNote: %s\n", entry.Annotation.Note)
		}
	}
	return b.String()
}
