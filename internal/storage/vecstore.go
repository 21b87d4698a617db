package storage

import (
	"container/heap"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// VecStore provides brute-force cosine similarity search over the
// embeddings table, joined against the functions table for result
// payloads. It shares the catalog's SQLite file; mutations must hold
// the same WriteLock as any other store mutation. At catalog scale
// (thousands of functions) a full scan is sub-millisecond and exact.
type VecStore struct {
	store *Store
}

// Payload carries the catalog columns joined into a search hit.
type Payload struct {
	Name        string
	Description string
	Tags        []string
	Status      string
}

// ScoredPoint is one ranked search hit.
type ScoredPoint struct {
	Name    string
	Score   float64
	Payload Payload
}

// NewVecStore creates a vector index over the given catalog store.
func NewVecStore(store *Store) *VecStore {
	return &VecStore{store: store}
}

// Upsert stores (or replaces) the embedding for a function, recording
// the model that produced it so stale vectors can be detected after a
// model upgrade.
func (vs *VecStore) Upsert(ctx context.Context, name string, vector []float32, modelName string) error {
	if len(vector) == 0 {
		return fmt.Errorf("upsert %q: empty vector", name)
	}
	_, err := vs.store.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO embeddings (function_name, vector, model_name, dimension, encoded_at)
		VALUES (?, ?, ?, ?, ?)
	`, name, float32ToBlob(vector), modelName, len(vector), time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert embedding %q: %w", name, err)
	}
	return nil
}

// Search returns the top-limit functions by cosine similarity to the
// query vector, joined to the catalog for description/tags/status.
// Archived and deleted functions are not part of the search population.
func (vs *VecStore) Search(ctx context.Context, queryVec []float32, limit int) ([]ScoredPoint, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := vs.store.rdb.QueryContext(ctx, `
		SELECT e.function_name, e.vector, e.dimension, f.description, f.tags, f.status
		FROM embeddings e
		JOIN functions f ON e.function_name = f.name
		WHERE f.status NOT IN (?, ?)
	`, StatusArchived, StatusDeleted)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	h := &pointHeap{}
	heap.Init(h)
	for rows.Next() {
		var name, status string
		var blob []byte
		var dims int
		var description, tagsJSON sql.NullString

		if err := rows.Scan(&name, &blob, &dims, &description, &tagsJSON, &status); err != nil {
			return nil, fmt.Errorf("vector search scan: %w", err)
		}

		vec := blobToFloat32(blob, dims)
		if len(vec) != len(queryVec) {
			continue // stale dimension; recovery pass will rebuild it
		}

		var tags []string
		if tagsJSON.Valid && tagsJSON.String != "" {
			json.Unmarshal([]byte(tagsJSON.String), &tags)
		}

		point := ScoredPoint{
			Name:  name,
			Score: cosineSimilarity(queryVec, vec),
			Payload: Payload{
				Name:        name,
				Description: description.String,
				Tags:        tags,
				Status:      status,
			},
		}

		if h.Len() < limit {
			heap.Push(h, point)
		} else if point.Score > (*h)[0].Score {
			(*h)[0] = point
			heap.Fix(h, 0)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	// Pop off the min-heap into descending score order.
	results := make([]ScoredPoint, h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		results[i] = heap.Pop(h).(ScoredPoint)
	}
	return results, nil
}

// Delete removes the embedding for a function.
func (vs *VecStore) Delete(ctx context.Context, name string) error {
	_, err := vs.store.db.ExecContext(ctx,
		"DELETE FROM embeddings WHERE function_name = ?", name)
	if err != nil {
		return fmt.Errorf("delete embedding %q: %w", name, err)
	}
	return nil
}

// Count returns the number of stored embeddings.
func (vs *VecStore) Count(ctx context.Context) (int, error) {
	var n int
	err := vs.store.rdb.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&n)
	return n, err
}

// pointHeap implements heap.Interface for top-K selection (min at root).
type pointHeap []ScoredPoint

func (h pointHeap) Len() int           { return len(h) }
func (h pointHeap) Less(i, j int) bool { return h[i].Score < h[j].Score }
func (h pointHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *pointHeap) Push(x any)        { *h = append(*h, x.(ScoredPoint)) }
func (h *pointHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// --- math helpers ---

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// --- serialization helpers ---

func float32ToBlob(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func blobToFloat32(b []byte, dims int) []float32 {
	v := make([]float32, dims)
	for i := 0; i < dims && i*4+4 <= len(b); i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
