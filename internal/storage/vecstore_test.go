package storage

import (
	"context"
	"math"
	"testing"
)

func TestVecStoreSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("Given stored vectors When Search Then results ordered by similarity", func(t *testing.T) {
		store, cleanup := createTestStore(t)
		defer cleanup()
		vecs := NewVecStore(store)

		seedRecords(t, store,
			makeTestRecord("exact", StatusPending),
			makeTestRecord("close", StatusPending),
			makeTestRecord("far", StatusPending),
		)
		mustUpsert(t, vecs, "exact", []float32{1, 0, 0})
		mustUpsert(t, vecs, "close", []float32{0.9, 0.1, 0})
		mustUpsert(t, vecs, "far", []float32{0, 0, 1})

		results, err := vecs.Search(ctx, []float32{1, 0, 0}, 3)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(results))
		}
		if results[0].Name != "exact" || results[1].Name != "close" || results[2].Name != "far" {
			t.Errorf("unexpected order: %s, %s, %s", results[0].Name, results[1].Name, results[2].Name)
		}
		if results[0].Score < 0.999 {
			t.Errorf("expected near-1 score for exact match, got %f", results[0].Score)
		}
	})

	t.Run("Given more vectors than limit When Search Then truncated to top K", func(t *testing.T) {
		store, cleanup := createTestStore(t)
		defer cleanup()
		vecs := NewVecStore(store)

		names := []string{"a", "b", "c", "d", "e"}
		for i, name := range names {
			seedRecords(t, store, makeTestRecord(name, StatusPending))
			mustUpsert(t, vecs, name, []float32{1, float32(i) * 0.2, 0})
		}

		results, err := vecs.Search(ctx, []float32{1, 0, 0}, 2)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 results, got %d", len(results))
		}
		if results[0].Name != "a" {
			t.Errorf("expected a first, got %s", results[0].Name)
		}
	})

	t.Run("Given archived and deleted functions When Search Then they are not in the population", func(t *testing.T) {
		store, cleanup := createTestStore(t)
		defer cleanup()
		vecs := NewVecStore(store)

		seedRecords(t, store,
			makeTestRecord("live", StatusVerified),
			makeTestRecord("shelved", StatusArchived),
			makeTestRecord("gone", StatusDeleted),
		)
		mustUpsert(t, vecs, "live", []float32{1, 0, 0})
		mustUpsert(t, vecs, "shelved", []float32{1, 0, 0})
		mustUpsert(t, vecs, "gone", []float32{1, 0, 0})

		results, err := vecs.Search(ctx, []float32{1, 0, 0}, 10)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 1 || results[0].Name != "live" {
			t.Errorf("expected only live, got %d results", len(results))
		}
	})

	t.Run("Given a stale-dimension vector When Search Then its row is skipped", func(t *testing.T) {
		store, cleanup := createTestStore(t)
		defer cleanup()
		vecs := NewVecStore(store)

		seedRecords(t, store,
			makeTestRecord("current", StatusPending),
			makeTestRecord("stale", StatusPending),
		)
		mustUpsert(t, vecs, "current", []float32{1, 0, 0})
		mustUpsert(t, vecs, "stale", []float32{1, 0})

		results, err := vecs.Search(ctx, []float32{1, 0, 0}, 10)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		if len(results) != 1 || results[0].Name != "current" {
			t.Errorf("expected only current, got %d results", len(results))
		}
	})
}

func mustUpsert(t *testing.T, vecs *VecStore, name string, vec []float32) {
	t.Helper()
	if err := vecs.Upsert(context.Background(), name, vec, "test-model"); err != nil {
		t.Fatalf("Upsert %s failed: %v", name, err)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical vectors", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal vectors", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite vectors", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("cosineSimilarity = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestVectorBlobRoundTrip(t *testing.T) {
	vec := []float32{0.1, -2.5, 3.75, 0}
	got := blobToFloat32(float32ToBlob(vec), len(vec))
	if len(got) != len(vec) {
		t.Fatalf("length mismatch: %d != %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("index %d: %f != %f", i, got[i], vec[i])
		}
	}
}
