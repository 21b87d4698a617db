package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/Ayato-AI-for-Auto/LogicHive/internal/quality"
	"github.com/Ayato-AI-for-Auto/LogicHive/internal/storage"
)

// ScoreFunction runs the quality gate over a stored function and
// records the resulting score in its metadata. When a completer is
// configured the static score is blended 50/50 with a qualitative
// model verdict; scoring never changes the function's status.
func (e *Engine) ScoreFunction(ctx context.Context, name string) (*quality.Report, error) {
	rec, err := e.store.GetFunction(ctx, name)
	if err != nil {
		return nil, err
	}

	report := e.gate.Score(rec.Code)
	if e.completer != nil {
		output, err := e.completer.Complete(ctx, qualityPrompt(rec))
		if err != nil {
			log.Printf("Warning: qualitative scoring failed for %q, keeping static score: %v", name, err)
		} else {
			report = e.gate.Finalize(report, output)
		}
	}

	if rec.Metadata == nil {
		rec.Metadata = make(map[string]any)
	}
	rec.Metadata[storage.MetaQualityScore] = report.FinalScore

	release, err := e.lock.Acquire(ctx)
	if err != nil {
		return report, err
	}
	defer release()
	if err := e.store.SaveFunction(ctx, rec); err != nil {
		return report, fmt.Errorf("failed to record quality score for %q: %w", name, err)
	}
	return report, nil
}

func qualityPrompt(rec *storage.FunctionRecord) string {
	return fmt.Sprintf(
		"You are a code reviewer. Evaluate the following function for clarity, "+
			"correctness and reusability. Respond ONLY with a JSON object of the form "+
			`{"score": <0-100>, "feedback": "<one sentence>"}.`+
			"\n\nName: %s\nDescription: %s\n\n```python\n%s\n```",
		rec.Name, rec.Description, rec.Code)
}
