package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Artifact status values stored in the functions table.
const (
	StatusPending       = "pending"
	StatusPendingTests  = "pending_tests"
	StatusVerified      = "verified"
	StatusFailed        = "failed"
	StatusBroken        = "broken"
	StatusErrorInternal = "error_internal"
	StatusArchived      = "archived"
	StatusDeleted       = "deleted"
)

// Metadata keys recognized inside a function record's open metadata map.
const (
	MetaDependencies         = "dependencies"
	MetaInternalDependencies = "internal_dependencies"
	MetaQualityScore         = "quality_score"
	MetaSyncSource           = "sync_source"
)

const (
	openMaxRetries = 10
	openBaseDelay  = 200 * time.Millisecond
)

// ErrNotFound is returned when a named function does not exist.
var ErrNotFound = errors.New("function not found")

// TestCase is one input/expected pair attached to a function.
type TestCase struct {
	Input    any `json:"input"`
	Expected any `json:"expected"`
}

// FunctionRecord is a row of the functions table.
type FunctionRecord struct {
	Name         string
	Code         string
	Description  string
	Tags         []string
	Metadata     map[string]any
	TestCases    []TestCase
	Status       string
	CallCount    int
	LastCalledAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// InternalDependencies returns the names of other stored functions this
// record declares it calls.
func (r *FunctionRecord) InternalDependencies() []string {
	return stringsFromMeta(r.Metadata, MetaInternalDependencies)
}

// Dependencies returns the external package names this record declares.
func (r *FunctionRecord) Dependencies() []string {
	return stringsFromMeta(r.Metadata, MetaDependencies)
}

// QualityScore returns the recorded quality score, or fallback when absent.
func (r *FunctionRecord) QualityScore(fallback int) int {
	if r.Metadata == nil {
		return fallback
	}
	switch v := r.Metadata[MetaQualityScore].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func stringsFromMeta(meta map[string]any, key string) []string {
	if meta == nil {
		return nil
	}
	raw, ok := meta[key]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Store is the durable catalog of functions and their derived embeddings,
// backed by a single SQLite file. All mutations must be performed while
// holding the WriteLock; reads go through a separate read-only handle so
// they never contend on the writer connection.
type Store struct {
	path string
	db   *sql.DB // writer handle
	rdb  *sql.DB // read-only handle
}

// Open opens (creating if necessary) the store at dbPath. The open is
// retried with exponential backoff while another process holds the file
// busy; only after exhausting retries is the error surfaced.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := openWithRetry("file:" + dbPath + "?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// Single writer connection; the WriteLock is the real serializer.
	db.SetMaxOpenConns(1)

	rdb, err := openWithRetry("file:" + dbPath + "?_busy_timeout=5000&mode=ro&_query_only=true")
	if err != nil {
		// The read-only handle cannot exist before the file does. Fall
		// back to the writer handle for reads until the next open.
		rdb = db
	}

	return &Store{path: dbPath, db: db, rdb: rdb}, nil
}

func openWithRetry(dsn string) (*sql.DB, error) {
	var lastErr error
	for attempt := 0; attempt < openMaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(openBaseDelay) * math.Pow(1.5, float64(attempt-1)))
			time.Sleep(delay)
		}

		db, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, err
		}
		if err := db.Ping(); err != nil {
			db.Close()
			lastErr = err
			if isBusyErr(err) {
				continue
			}
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("store file busy after %d attempts: %w", openMaxRetries, lastErr)
}

func isBusyErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, frag := range []string{"locked", "busy", "in use", "access"} {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}

// Close closes both database handles.
func (s *Store) Close() error {
	if s.rdb != nil && s.rdb != s.db {
		s.rdb.Close()
	}
	return s.db.Close()
}

// Path returns the store file path.
func (s *Store) Path() string { return s.path }

// DB exposes the writer handle for components sharing the same store
// file (the vector index lives in the same database).
func (s *Store) DB() *sql.DB { return s.db }

// ReadDB exposes the read-only handle.
func (s *Store) ReadDB() *sql.DB { return s.rdb }

// Init provisions the schema. It is idempotent and safe to call on
// every process start. The caller must hold the write lock.
func (s *Store) Init(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS functions (
			name TEXT PRIMARY KEY,
			code TEXT,
			description TEXT,
			tags TEXT,
			metadata TEXT,
			test_cases TEXT,
			status TEXT DEFAULT 'pending',
			call_count INTEGER DEFAULT 0,
			last_called_at TEXT,
			created_at TEXT,
			updated_at TEXT
		);

		CREATE TABLE IF NOT EXISTS embeddings (
			function_name TEXT PRIMARY KEY,
			vector BLOB NOT NULL,
			model_name TEXT,
			dimension INTEGER,
			encoded_at TEXT
		);

		CREATE TABLE IF NOT EXISTS config (
			key TEXT PRIMARY KEY,
			value TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_functions_status ON functions(status);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("provision schema: %w", err)
	}
	return nil
}

// SaveFunction fully replaces the record stored under rec.Name (insert
// or replace semantics). Both timestamps are taken from rec as-is.
func (s *Store) SaveFunction(ctx context.Context, rec *FunctionRecord) error {
	tagsJSON, _ := json.Marshal(rec.Tags)
	metaJSON, _ := json.Marshal(rec.Metadata)
	testsJSON, _ := json.Marshal(rec.TestCases)

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO functions
			(name, code, description, tags, metadata, test_cases, status, call_count, last_called_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Name, rec.Code, rec.Description, string(tagsJSON), string(metaJSON), string(testsJSON),
		rec.Status, rec.CallCount, formatNullableTime(rec.LastCalledAt),
		rec.CreatedAt.Format(time.RFC3339), rec.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save function %q: %w", rec.Name, err)
	}
	return nil
}

// UpsertRemote merges a record arriving from the remote dataset. An
// existing row is updated in place, preserving created_at, call counts
// and status; a new name is inserted with both timestamps stamped now.
func (s *Store) UpsertRemote(ctx context.Context, rec *FunctionRecord) error {
	tagsJSON, _ := json.Marshal(rec.Tags)
	metaJSON, _ := json.Marshal(rec.Metadata)
	testsJSON, _ := json.Marshal(rec.TestCases)
	now := time.Now().Format(time.RFC3339)

	res, err := s.db.ExecContext(ctx, `
		UPDATE functions
		SET code = ?, description = ?, tags = ?, metadata = ?, test_cases = ?, updated_at = ?
		WHERE name = ?
	`, rec.Code, rec.Description, string(tagsJSON), string(metaJSON), string(testsJSON), now, rec.Name)
	if err != nil {
		return fmt.Errorf("merge remote %q: %w", rec.Name, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	status := rec.Status
	if status == "" {
		status = StatusPending
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO functions
			(name, code, description, tags, metadata, test_cases, status, call_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`, rec.Name, rec.Code, rec.Description, string(tagsJSON), string(metaJSON), string(testsJSON), status, now, now)
	if err != nil {
		return fmt.Errorf("insert remote %q: %w", rec.Name, err)
	}
	return nil
}

const recordColumns = `name, code, description, tags, metadata, test_cases, status, call_count, last_called_at, created_at, updated_at`

// GetFunction retrieves the full record stored under name.
func (s *Store) GetFunction(ctx context.Context, name string) (*FunctionRecord, error) {
	row := s.rdb.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM functions WHERE name = ?`, name)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("get function %q: %w", name, err)
	}
	return rec, nil
}

// GetStatus is a point lookup of a function's status.
func (s *Store) GetStatus(ctx context.Context, name string) (string, error) {
	var status string
	err := s.rdb.QueryRowContext(ctx,
		"SELECT status FROM functions WHERE name = ?", name).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("get status %q: %w", name, err)
	}
	return status, nil
}

// SetStatus updates a function's status and re-stamps updated_at.
func (s *Store) SetStatus(ctx context.Context, name, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE functions SET status = ?, updated_at = ? WHERE name = ?",
		status, time.Now().Format(time.RFC3339), name)
	if err != nil {
		return fmt.Errorf("set status %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// TouchUsage bumps call_count and stamps last_called_at.
func (s *Store) TouchUsage(ctx context.Context, name string) error {
	now := time.Now().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		UPDATE functions
		SET call_count = call_count + 1, last_called_at = ?, updated_at = ?
		WHERE name = ?
	`, now, now, name)
	if err != nil {
		return fmt.Errorf("touch usage %q: %w", name, err)
	}
	return nil
}

// DeleteFunction physically removes the row and its embedding.
func (s *Store) DeleteFunction(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM embeddings WHERE function_name = ?", name); err != nil {
		return fmt.Errorf("delete embedding %q: %w", name, err)
	}
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM functions WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete function %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// ListFunctions returns up to limit records. Archived and deleted rows
// are excluded unless includeArchived is set.
func (s *Store) ListFunctions(ctx context.Context, limit int, includeArchived bool) ([]*FunctionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + recordColumns + ` FROM functions WHERE status != ?`
	args := []any{StatusDeleted}
	if !includeArchived {
		query += ` AND status != ?`
		args = append(args, StatusArchived)
	}
	query += ` ORDER BY name LIMIT ?`
	args = append(args, limit)

	return s.queryRecords(ctx, query, args...)
}

// ListByStatus returns records whose status matches any of statuses.
func (s *Store) ListByStatus(ctx context.Context, limit int, statuses ...string) ([]*FunctionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	args := make([]any, 0, len(statuses)+1)
	for _, st := range statuses {
		args = append(args, st)
	}
	args = append(args, limit)

	return s.queryRecords(ctx,
		`SELECT `+recordColumns+` FROM functions WHERE status IN (`+placeholders+`) ORDER BY updated_at DESC LIMIT ?`,
		args...)
}

// ScanRetention returns every record eligible for retention evaluation,
// i.e. everything not already deleted or archived.
func (s *Store) ScanRetention(ctx context.Context) ([]*FunctionRecord, error) {
	return s.queryRecords(ctx,
		`SELECT `+recordColumns+` FROM functions WHERE status NOT IN (?, ?)`,
		StatusDeleted, StatusArchived)
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]*FunctionRecord, error) {
	rows, err := s.rdb.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*FunctionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*FunctionRecord, error) {
	var rec FunctionRecord
	var tagsJSON, metaJSON, testsJSON sql.NullString
	var lastCalled, created, updated sql.NullString

	err := row.Scan(&rec.Name, &rec.Code, &rec.Description, &tagsJSON, &metaJSON, &testsJSON,
		&rec.Status, &rec.CallCount, &lastCalled, &created, &updated)
	if err != nil {
		return nil, err
	}

	if tagsJSON.Valid && tagsJSON.String != "" {
		json.Unmarshal([]byte(tagsJSON.String), &rec.Tags)
	}
	if metaJSON.Valid && metaJSON.String != "" {
		json.Unmarshal([]byte(metaJSON.String), &rec.Metadata)
	}
	if testsJSON.Valid && testsJSON.String != "" {
		json.Unmarshal([]byte(testsJSON.String), &rec.TestCases)
	}
	rec.LastCalledAt = parseNullableTime(lastCalled)
	if t := parseNullableTime(created); t != nil {
		rec.CreatedAt = *t
	}
	if t := parseNullableTime(updated); t != nil {
		rec.UpdatedAt = *t
	}
	return &rec, nil
}

// GetConfig reads a value from the config table; missing keys return "".
func (s *Store) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.rdb.QueryRowContext(ctx,
		"SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get config %q: %w", key, err)
	}
	return value, nil
}

// SetConfig writes a value into the config table.
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO config (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("set config %q: %w", key, err)
	}
	return nil
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	// Stored timestamps are RFC3339; tolerate a space separator from
	// older imports.
	raw := strings.Replace(s.String, " ", "T", 1)
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}
