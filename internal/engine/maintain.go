package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/Ayato-AI-for-Auto/LogicHive/internal/oracle"
	"github.com/Ayato-AI-for-Auto/LogicHive/internal/storage"
)

// maintain is the background half of a save: embedding generation and
// verification. The embedding is generated regardless of verification
// outcome so even broken or failing functions stay searchable; broken
// is terminal and never reaches the execution oracle.
func (e *Engine) maintain(ctx context.Context, name string, skipTest bool) error {
	rec, err := e.store.GetFunction(ctx, name)
	if err != nil {
		return fmt.Errorf("maintenance lookup for %q: %w", name, err)
	}

	vec := e.embedder.Embed(ctx, storage.EmbedText(rec))
	release, err := e.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("maintenance for %q: %w", name, err)
	}
	upsertErr := e.vecs.Upsert(ctx, name, vec, e.embedder.ModelInfo().Name)
	release()
	if upsertErr != nil {
		log.Printf("Warning: embedding upsert for %q failed: %v", name, upsertErr)
	}

	if rec.Status == storage.StatusBroken {
		return nil
	}

	status := e.verify(ctx, rec, skipTest)
	if status == rec.Status {
		return nil
	}

	release, err = e.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("maintenance for %q: %w", name, err)
	}
	defer release()
	if err := e.store.SetStatus(ctx, name, status); err != nil {
		return fmt.Errorf("maintenance for %q: %w", name, err)
	}
	log.Printf("maintenance: %q verified as %s", name, status)
	return nil
}

func (e *Engine) verify(ctx context.Context, rec *storage.FunctionRecord, skipTest bool) string {
	if skipTest {
		return storage.StatusVerified
	}
	if len(rec.TestCases) == 0 {
		return storage.StatusPendingTests
	}

	result, err := e.runner.RunTests(ctx, rec.Code, rec.TestCases)
	if err != nil {
		log.Printf("Warning: execution oracle unreachable for %q: %v", rec.Name, err)
		return storage.StatusErrorInternal
	}
	if result.Status == oracle.ResultSuccess {
		return storage.StatusVerified
	}
	if result.Error != "" {
		log.Printf("verification failed for %q: %s", rec.Name, result.Error)
	}
	return storage.StatusFailed
}
