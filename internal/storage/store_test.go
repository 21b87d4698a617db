package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// createTestStore creates a store over a temp SQLite file with the
// schema provisioned.
func createTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "store-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	store, err := Open(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to open store: %v", err)
	}
	if err := store.Init(context.Background()); err != nil {
		store.Close()
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to init store: %v", err)
	}

	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}
	return store, cleanup
}

// makeTestRecord creates a FunctionRecord with sensible defaults.
func makeTestRecord(name, status string) *FunctionRecord {
	now := time.Now()
	return &FunctionRecord{
		Name:        name,
		Code:        "def " + name + "():\n    return 1\n",
		Description: "Test " + name,
		Tags:        []string{"test"},
		Metadata: map[string]any{
			MetaQualityScore: 50,
		},
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func seedRecords(t *testing.T, store *Store, recs ...*FunctionRecord) {
	t.Helper()
	for _, rec := range recs {
		if err := store.SaveFunction(context.Background(), rec); err != nil {
			t.Fatalf("Failed to seed %s: %v", rec.Name, err)
		}
	}
}

func TestSaveAndGetFunction(t *testing.T) {
	ctx := context.Background()

	t.Run("Given a saved function When GetFunction Then full record round-trips", func(t *testing.T) {
		store, cleanup := createTestStore(t)
		defer cleanup()

		rec := makeTestRecord("parse_csv", StatusPending)
		rec.TestCases = []TestCase{{Input: []any{"a,b"}, Expected: []any{"a", "b"}}}
		rec.Metadata[MetaInternalDependencies] = []string{"split_line"}
		seedRecords(t, store, rec)

		got, err := store.GetFunction(ctx, "parse_csv")
		if err != nil {
			t.Fatalf("GetFunction failed: %v", err)
		}
		if got.Code != rec.Code {
			t.Errorf("code mismatch: got %q", got.Code)
		}
		if got.Status != StatusPending {
			t.Errorf("expected status pending, got %s", got.Status)
		}
		if len(got.TestCases) != 1 {
			t.Errorf("expected 1 test case, got %d", len(got.TestCases))
		}
		if deps := got.InternalDependencies(); len(deps) != 1 || deps[0] != "split_line" {
			t.Errorf("unexpected internal dependencies: %v", deps)
		}
		if got.QualityScore(0) != 50 {
			t.Errorf("expected quality 50, got %d", got.QualityScore(0))
		}
	})

	t.Run("Given no such function When GetFunction Then ErrNotFound", func(t *testing.T) {
		store, cleanup := createTestStore(t)
		defer cleanup()

		_, err := store.GetFunction(ctx, "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Given an existing name When SaveFunction again Then record is replaced", func(t *testing.T) {
		store, cleanup := createTestStore(t)
		defer cleanup()

		seedRecords(t, store, makeTestRecord("dup", StatusPending))
		updated := makeTestRecord("dup", StatusVerified)
		updated.Code = "def dup():\n    return 2\n"
		seedRecords(t, store, updated)

		got, err := store.GetFunction(ctx, "dup")
		if err != nil {
			t.Fatalf("GetFunction failed: %v", err)
		}
		if got.Status != StatusVerified {
			t.Errorf("expected verified, got %s", got.Status)
		}
		if got.Code != updated.Code {
			t.Errorf("code not replaced: %q", got.Code)
		}
	})
}

func TestSetStatusAndTouchUsage(t *testing.T) {
	ctx := context.Background()

	t.Run("Given a function When SetStatus Then status changes", func(t *testing.T) {
		store, cleanup := createTestStore(t)
		defer cleanup()
		seedRecords(t, store, makeTestRecord("fn", StatusPending))

		if err := store.SetStatus(ctx, "fn", StatusVerified); err != nil {
			t.Fatalf("SetStatus failed: %v", err)
		}
		status, err := store.GetStatus(ctx, "fn")
		if err != nil {
			t.Fatalf("GetStatus failed: %v", err)
		}
		if status != StatusVerified {
			t.Errorf("expected verified, got %s", status)
		}
	})

	t.Run("Given no such function When SetStatus Then ErrNotFound", func(t *testing.T) {
		store, cleanup := createTestStore(t)
		defer cleanup()

		if err := store.SetStatus(ctx, "missing", StatusVerified); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Given a function When TouchUsage twice Then call_count is 2 and last_called_at set", func(t *testing.T) {
		store, cleanup := createTestStore(t)
		defer cleanup()
		seedRecords(t, store, makeTestRecord("used", StatusVerified))

		if err := store.TouchUsage(ctx, "used"); err != nil {
			t.Fatalf("TouchUsage failed: %v", err)
		}
		if err := store.TouchUsage(ctx, "used"); err != nil {
			t.Fatalf("TouchUsage failed: %v", err)
		}

		got, err := store.GetFunction(ctx, "used")
		if err != nil {
			t.Fatalf("GetFunction failed: %v", err)
		}
		if got.CallCount != 2 {
			t.Errorf("expected call_count 2, got %d", got.CallCount)
		}
		if got.LastCalledAt == nil {
			t.Error("expected last_called_at to be set")
		}
	})
}

func TestUpsertRemote(t *testing.T) {
	ctx := context.Background()

	t.Run("Given an existing function When UpsertRemote Then created_at is preserved", func(t *testing.T) {
		store, cleanup := createTestStore(t)
		defer cleanup()

		original := makeTestRecord("shared", StatusVerified)
		original.CreatedAt = time.Now().Add(-48 * time.Hour).Truncate(time.Second)
		original.CallCount = 7
		seedRecords(t, store, original)

		remote := makeTestRecord("shared", "")
		remote.Code = "def shared():\n    return 'remote'\n"
		if err := store.UpsertRemote(ctx, remote); err != nil {
			t.Fatalf("UpsertRemote failed: %v", err)
		}

		got, err := store.GetFunction(ctx, "shared")
		if err != nil {
			t.Fatalf("GetFunction failed: %v", err)
		}
		if got.Code != remote.Code {
			t.Errorf("code not updated: %q", got.Code)
		}
		if !got.CreatedAt.Equal(original.CreatedAt) {
			t.Errorf("created_at not preserved: got %v, want %v", got.CreatedAt, original.CreatedAt)
		}
		if got.CallCount != 7 {
			t.Errorf("call_count not preserved: got %d", got.CallCount)
		}
		if got.Status != StatusVerified {
			t.Errorf("status not preserved: got %s", got.Status)
		}
	})

	t.Run("Given a new name When UpsertRemote Then row is inserted as pending", func(t *testing.T) {
		store, cleanup := createTestStore(t)
		defer cleanup()

		remote := makeTestRecord("incoming", "")
		remote.Status = ""
		if err := store.UpsertRemote(ctx, remote); err != nil {
			t.Fatalf("UpsertRemote failed: %v", err)
		}

		got, err := store.GetFunction(ctx, "incoming")
		if err != nil {
			t.Fatalf("GetFunction failed: %v", err)
		}
		if got.Status != StatusPending {
			t.Errorf("expected pending, got %s", got.Status)
		}
		if got.CreatedAt.IsZero() {
			t.Error("expected created_at to be stamped")
		}
	})
}

func TestListFunctions(t *testing.T) {
	ctx := context.Background()

	t.Run("Given archived and active functions When ListFunctions Then archived excluded by default", func(t *testing.T) {
		store, cleanup := createTestStore(t)
		defer cleanup()
		seedRecords(t, store,
			makeTestRecord("active", StatusVerified),
			makeTestRecord("shelved", StatusArchived),
			makeTestRecord("gone", StatusDeleted),
		)

		recs, err := store.ListFunctions(ctx, 10, false)
		if err != nil {
			t.Fatalf("ListFunctions failed: %v", err)
		}
		if len(recs) != 1 || recs[0].Name != "active" {
			t.Errorf("expected only active, got %d records", len(recs))
		}

		all, err := store.ListFunctions(ctx, 10, true)
		if err != nil {
			t.Fatalf("ListFunctions failed: %v", err)
		}
		if len(all) != 2 {
			t.Errorf("expected active+archived, got %d records", len(all))
		}
	})

	t.Run("Given mixed statuses When ListByStatus Then only matches returned", func(t *testing.T) {
		store, cleanup := createTestStore(t)
		defer cleanup()
		seedRecords(t, store,
			makeTestRecord("ok", StatusVerified),
			makeTestRecord("bad", StatusBroken),
			makeTestRecord("worse", StatusFailed),
		)

		recs, err := store.ListByStatus(ctx, 10, StatusBroken, StatusFailed)
		if err != nil {
			t.Fatalf("ListByStatus failed: %v", err)
		}
		if len(recs) != 2 {
			t.Errorf("expected 2 triage records, got %d", len(recs))
		}
	})
}

func TestDeleteFunction(t *testing.T) {
	ctx := context.Background()

	t.Run("Given a function with an embedding When DeleteFunction Then both rows removed", func(t *testing.T) {
		store, cleanup := createTestStore(t)
		defer cleanup()
		seedRecords(t, store, makeTestRecord("doomed", StatusVerified))

		vecs := NewVecStore(store)
		if err := vecs.Upsert(ctx, "doomed", []float32{1, 0, 0}, "test-model"); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}

		if err := store.DeleteFunction(ctx, "doomed"); err != nil {
			t.Fatalf("DeleteFunction failed: %v", err)
		}

		if _, err := store.GetFunction(ctx, "doomed"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		n, err := vecs.Count(ctx)
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 0 {
			t.Errorf("expected 0 embeddings after delete, got %d", n)
		}
	})
}

func TestConfigTable(t *testing.T) {
	ctx := context.Background()

	t.Run("Given a missing key When GetConfig Then empty string", func(t *testing.T) {
		store, cleanup := createTestStore(t)
		defer cleanup()

		val, err := store.GetConfig(ctx, "nope")
		if err != nil {
			t.Fatalf("GetConfig failed: %v", err)
		}
		if val != "" {
			t.Errorf("expected empty, got %q", val)
		}
	})

	t.Run("Given a set key When SetConfig again Then value replaced", func(t *testing.T) {
		store, cleanup := createTestStore(t)
		defer cleanup()

		if err := store.SetConfig(ctx, "embedding_model", "a"); err != nil {
			t.Fatalf("SetConfig failed: %v", err)
		}
		if err := store.SetConfig(ctx, "embedding_model", "b"); err != nil {
			t.Fatalf("SetConfig failed: %v", err)
		}
		val, err := store.GetConfig(ctx, "embedding_model")
		if err != nil {
			t.Fatalf("GetConfig failed: %v", err)
		}
		if val != "b" {
			t.Errorf("expected b, got %q", val)
		}
	})
}
