package engine

import (
	"context"

	"github.com/Ayato-AI-for-Auto/LogicHive/internal/oracle"
	"github.com/Ayato-AI-for-Auto/LogicHive/internal/quality"
	"github.com/Ayato-AI-for-Auto/LogicHive/internal/rerank"
	"github.com/Ayato-AI-for-Auto/LogicHive/internal/storage"
)

// Embedder converts text into vectors. Implementations never fail:
// unavailable backends yield a zero vector of the model's dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
	ModelInfo() storage.ModelInfo
}

// TestRunner executes a function's test cases remotely.
type TestRunner interface {
	RunTests(ctx context.Context, code string, tests []storage.TestCase) (*oracle.Result, error)
}

// SecretScanner detects credential shapes in text.
type SecretScanner interface {
	CheckSecrets(text string) (found bool, match string)
}

// SyntaxChecker reports whether source parses.
type SyntaxChecker interface {
	CheckSyntax(code string) bool
}

// QualityScorer evaluates function quality on demand.
type QualityScorer interface {
	Score(code string) *quality.Report
	Finalize(report *quality.Report, llmOutput string) *quality.Report
}

// RerankOracle is the stateless half of the two-phase selection
// protocol: it builds the prompt and validates the raw model output.
type RerankOracle interface {
	BuildPrompt(query string, candidates []rerank.Candidate) string
	Finalize(candidates []rerank.Candidate, llmOutput string) (selected string, ok bool)
}

// Completer executes a prompt with locally held model credentials.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
