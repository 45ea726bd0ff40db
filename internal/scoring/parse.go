// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scoring

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/litwatch/pkg/types"
)

// MalformedError reports model output that could not be used as a
// verdict. It consumes a retry attempt like any transport failure.
type MalformedError struct {
	Reason string
	Raw    string
}

func (e *MalformedError) Error() string {
	return "malformed model output: " + e.Reason
}

// Parse decodes a model reply into a scored enrichment. The reply must
// be a JSON object carrying all four verdict fields with the score in
// range; anything else is malformed. An out-of-range score is never
// clamped, since a model that ignores the bounds cannot be trusted on
// the rest of the verdict either.
func Parse(raw string) (types.Enrichment, error) {
	text := stripFences(strings.TrimSpace(raw))

	var payload struct {
		RelevanceScore *int      `json:"relevance_score"`
		Summary        *string   `json:"summary"`
		KeyFinding     *string   `json:"key_finding"`
		Tags           *[]string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return types.Enrichment{}, &MalformedError{
			Reason: "invalid JSON: " + err.Error(),
			Raw:    snippet(text),
		}
	}

	missing := []struct {
		field  string
		absent bool
	}{
		{"relevance_score", payload.RelevanceScore == nil},
		{"summary", payload.Summary == nil},
		{"key_finding", payload.KeyFinding == nil},
		{"tags", payload.Tags == nil},
	}
	for _, m := range missing {
		if m.absent {
			return types.Enrichment{}, &MalformedError{
				Reason: "missing field " + m.field,
				Raw:    snippet(text),
			}
		}
	}

	score := *payload.RelevanceScore
	if score < 1 || score > 10 {
		return types.Enrichment{}, &MalformedError{
			Reason: fmt.Sprintf("relevance_score %d out of range", score),
			Raw:    snippet(text),
		}
	}

	var tags []string
	for _, tag := range *payload.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	return types.Enrichment{
		RelevanceScore: score,
		Summary:        strings.TrimSpace(*payload.Summary),
		KeyFinding:     strings.TrimSpace(*payload.KeyFinding),
		Tags:           tags,
		Status:         types.ScoringScored,
	}, nil
}

// stripFences removes a surrounding markdown code block. Models asked
// for bare JSON still wrap it in fences often enough that stripping is
// cheaper than retrying.
func stripFences(text string) string {
	if strings.HasPrefix(text, "```") {
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			text = text[i+1:]
		}
		if i := strings.LastIndex(text, "```"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= 200 {
		return text
	}
	return string(runes[:200])
}
