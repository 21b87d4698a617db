package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/Ayato-AI-for-Auto/LogicHive/internal/rerank"
)

const selectCandidates = 5

// SmartSelect finds the function best matching the query intent and
// returns it with its dependencies bundled. When a completer is
// configured, the candidate set goes through the two-phase rerank
// protocol; any rerank failure falls back to the top similarity hit.
func (e *Engine) SmartSelect(ctx context.Context, query string) (*SelectResult, error) {
	hits, err := e.Search(ctx, query, selectCandidates)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, fmt.Errorf("no function matches %q", query)
	}

	selected := hits[0].Name
	reranked := false
	if e.completer != nil && e.reranker != nil {
		if name, ok := e.rerankHits(ctx, query, hits); ok {
			selected = name
			reranked = true
		}
	}

	bundle, err := e.Bundle(ctx, selected)
	if err != nil {
		return nil, err
	}
	return &SelectResult{Name: selected, Bundle: bundle, Reranked: reranked}, nil
}

func (e *Engine) rerankHits(ctx context.Context, query string, hits []SearchResult) (string, bool) {
	candidates := make([]rerank.Candidate, len(hits))
	for i, hit := range hits {
		candidates[i] = rerank.Candidate{
			Name:        hit.Name,
			Description: hit.Description,
			Tags:        hit.Tags,
		}
	}

	prompt := e.reranker.BuildPrompt(query, candidates)
	output, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		log.Printf("Warning: rerank completion failed, using top similarity hit: %v", err)
		return "", false
	}

	selected, ok := e.reranker.Finalize(candidates, output)
	if !ok {
		log.Printf("rerank declined the candidate set, using top similarity hit")
		return "", false
	}
	return selected, true
}
