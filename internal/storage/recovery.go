package storage

import (
	"context"
	"fmt"
	"log"
)

const configKeyEmbeddingModel = "embedding_model"

// ModelInfo identifies the embedding model an embedder produces vectors
// with. An embedding whose recorded (model, dimension) does not match
// the active model is stale and must be regenerated before the vector
// index can be trusted.
type ModelInfo struct {
	Name      string
	Dimension int
}

// Embedder is the slice of the embedding service the recovery pass
// needs. Embed never fails: unavailable backends yield a zero vector.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
	ModelInfo() ModelInfo
}

// EmbedText builds the canonical text an embedding is derived from:
// name, description, tags, internal dependencies and the head of the
// code body.
func EmbedText(rec *FunctionRecord) string {
	code := rec.Code
	if len(code) > 500 {
		code = code[:500]
	}
	return fmt.Sprintf("Name: %s\nDesc: %s\nTags: %v\nDeps: %v\nCode:\n%s",
		rec.Name, rec.Description, rec.Tags, rec.InternalDependencies(), code)
}

// CheckModelVersion records the active embedding model in the config
// table, updating it when the configured model has changed.
func (s *Store) CheckModelVersion(ctx context.Context, info ModelInfo) error {
	current, err := s.GetConfig(ctx, configKeyEmbeddingModel)
	if err != nil {
		return err
	}
	if current == info.Name {
		return nil
	}
	if current != "" {
		log.Printf("embedding model changed (%s -> %s); stale embeddings will be recovered", current, info.Name)
	}
	return s.SetConfig(ctx, configKeyEmbeddingModel, info.Name)
}

// RecoverEmbeddings regenerates every embedding that is missing or
// stale relative to the active embedding model. It is best-effort:
// per-function failures are logged and do not block startup. The
// caller must hold the write lock. Returns the number of embeddings
// rebuilt.
func (s *Store) RecoverEmbeddings(ctx context.Context, embedder Embedder, vecs *VecStore) int {
	info := embedder.ModelInfo()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+qualifiedRecordColumns+`
		FROM functions f
		LEFT JOIN embeddings e ON f.name = e.function_name
		WHERE e.function_name IS NULL OR e.model_name != ? OR e.dimension != ?
	`, info.Name, info.Dimension)
	if err != nil {
		log.Printf("Warning: embedding recovery scan failed: %v", err)
		return 0
	}

	var recs []*FunctionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			log.Printf("Warning: embedding recovery scan failed: %v", err)
			break
		}
		recs = append(recs, rec)
	}
	rows.Close()

	recovered := 0
	for _, rec := range recs {
		vec := embedder.Embed(ctx, EmbedText(rec))
		if err := vecs.Upsert(ctx, rec.Name, vec, info.Name); err != nil {
			log.Printf("Warning: embedding recovery for %q failed: %v", rec.Name, err)
			continue
		}
		recovered++
	}
	if recovered > 0 {
		log.Printf("embedding recovery rebuilt %d vectors for model %s", recovered, info.Name)
	}
	return recovered
}

const qualifiedRecordColumns = `f.name, f.code, f.description, f.tags, f.metadata, f.test_cases, f.status, f.call_count, f.last_called_at, f.created_at, f.updated_at`
