package engine

import (
	"github.com/Ayato-AI-for-Auto/LogicHive/internal/storage"
)

// Save result statuses returned to the caller.
const (
	SaveQueued   = "queued"
	SaveRejected = "rejected"
)

// SaveRequest is one function submission.
type SaveRequest struct {
	Name                 string
	Code                 string
	Description          string
	Tags                 []string
	Dependencies         []string
	InternalDependencies []string
	TestCases            []storage.TestCase
	SkipTest             bool
}

// SaveResult reports the synchronous outcome of a save. Verification
// itself is asynchronous; a queued result only means the function was
// persisted and maintenance scheduled.
type SaveResult struct {
	Name    string
	Status  string
	Message string
}

// SearchResult is one ranked search hit.
type SearchResult struct {
	Name        string
	Score       float64
	Description string
	Tags        []string
	Status      string
}

// SelectResult is the outcome of a smart-select: the chosen function
// and its bundled source, plus whether the rerank oracle made the call
// or the engine fell back to the top similarity hit.
type SelectResult struct {
	Name     string
	Bundle   string
	Reranked bool
}
