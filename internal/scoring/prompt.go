// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scoring

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/litwatch/pkg/types"
)

// defaultInstructions is the rubric used when the operator has not
// configured one. It is deliberately topic-neutral; teams set
// scoring.instructions to describe their own research focus.
const defaultInstructions = `You are a scientific literature analyst triaging newly published papers for a research team.

Score each paper's relevance to the team's research focus from 1-10:
- 9-10: directly about the team's core topic
- 7-8: closely related methods, systems, or results the team would act on
- 5-6: tangentially related work worth knowing about
- 3-4: loosely related background
- 1-2: not relevant

Also provide a 2-3 sentence summary focused on what is actionable or novel for the team.`

// responseContract fixes the output shape. It is always appended to
// the instructions so operator overrides cannot break parsing.
const responseContract = `Respond in JSON format:
{
    "relevance_score": <int 1-10>,
    "summary": "<2-3 sentence string>",
    "key_finding": "<one-sentence headline of the main finding>",
    "tags": ["<tag1>", "<tag2>"]
}`

var userPromptTemplate = template.Must(template.New("user").Parse(`Please evaluate this paper:

**Title**: {{.Title}}
**Journal**: {{.Journal}}
**Abstract**: {{.Abstract}}

Respond with JSON only, no other text, no markdown code blocks.`))

// Prompts builds the system and user messages for one paper. The
// abstract is truncated to cfg.AbstractMaxChars so oversized inputs
// cannot blow the model's context window.
func Prompts(cfg types.ScoringConfig, p types.Paper) (system, user string, err error) {
	instructions := strings.TrimSpace(cfg.Instructions)
	if instructions == "" {
		instructions = defaultInstructions
	}
	system = instructions + "\n\n" + responseContract

	abstract := p.Abstract
	if abstract == "" {
		abstract = "No abstract available."
	} else {
		abstract = truncateRunes(abstract, cfg.AbstractMaxChars)
	}

	var b strings.Builder
	err = userPromptTemplate.Execute(&b, struct {
		Title    string
		Journal  string
		Abstract string
	}{
		Title:    p.Title,
		Journal:  p.Journal,
		Abstract: abstract,
	})
	if err != nil {
		return "", "", fmt.Errorf("building prompt: %w", err)
	}
	return system, b.String(), nil
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
