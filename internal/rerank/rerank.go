// Package rerank implements the two-phase rerank protocol: a stateless
// party builds the selection prompt, the caller executes it with its
// own model credentials, and the stateless party validates the raw
// output against the candidate set. Model credentials never cross the
// trust boundary.
package rerank

import (
	"fmt"
	"strings"
)

// Candidate is one search hit offered to the reranker.
type Candidate struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

// Oracle builds prompts and validates model decisions. It holds no
// credentials and no state.
type Oracle struct{}

// NewOracle creates a rerank oracle.
func NewOracle() *Oracle {
	return &Oracle{}
}

// BuildPrompt renders the candidate selection prompt for a query.
func (o *Oracle) BuildPrompt(query string, candidates []Candidate) string {
	var sb strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&sb, "[%d] Name: %s\nDescription: %s\nTags: %v\n\n", i+1, c.Name, c.Description, c.Tags)
	}

	return fmt.Sprintf(
		"You are a routing agent for a function store.\n"+
			"User Query: %q\n\n"+
			"Candidates:\n%s"+
			"Instruction: Based on the User Query, select the one most relevant function from the candidates. "+
			"If none of them match, respond with 'NONE'. Otherwise, respond ONLY with the exact function name.",
		query, sb.String())
}

// Finalize validates raw model output against the candidate set: first
// line, trimmed, stripped of quotes, exact name match. Anything else
// (including 'NONE') selects nothing.
func (o *Oracle) Finalize(candidates []Candidate, llmOutput string) (selected string, ok bool) {
	decision, _, _ := strings.Cut(llmOutput, "\n")
	decision = strings.TrimSpace(decision)
	decision = strings.Trim(decision, `'"`)
	if decision == "" || decision == "NONE" {
		return "", false
	}

	for _, c := range candidates {
		if c.Name == decision {
			return decision, true
		}
	}
	return "", false
}
