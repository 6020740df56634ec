package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/helmcode/arqv30-client/pkg/model"
)

// Keys used by the client. They match the names the web client kept in
// localStorage so state can be shared between the two.
const (
	KeyFormData       = "arqv30_form_data"
	KeyOngoingSession = "arqv30_ongoing_session"
	// KeyLastResult holds the analysis_result of the last completed analysis.
	KeyLastResult = "arqv30_last_result"
)

const schema = `
CREATE TABLE IF NOT EXISTS local_storage (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);`

// Store is a small persistent key-value store backed by SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (and creates if needed) the SQLite database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing database handle and ensures the schema exists.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create local_storage table: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key and whether it exists.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM local_storage WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO local_storage (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.now().UTC())
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM local_storage WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// SaveForm persists the form snapshot.
func (s *Store) SaveForm(ctx context.Context, f model.Form) error {
	if f == nil {
		f = model.Form{}
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal form: %w", err)
	}
	return s.Set(ctx, KeyFormData, string(data))
}

// LoadForm returns the saved form snapshot, or an empty form.
func (s *Store) LoadForm(ctx context.Context) (model.Form, error) {
	raw, ok, err := s.Get(ctx, KeyFormData)
	if err != nil || !ok {
		return model.Form{}, err
	}
	var f model.Form
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return model.Form{}, fmt.Errorf("decode saved form: %w", err)
	}
	if f == nil {
		f = model.Form{}
	}
	return f, nil
}

// ClearForm removes the saved form snapshot.
func (s *Store) ClearForm(ctx context.Context) error {
	return s.Delete(ctx, KeyFormData)
}

// SetOngoingSession records the session that is being analyzed.
func (s *Store) SetOngoingSession(ctx context.Context, sessionID string) error {
	return s.Set(ctx, KeyOngoingSession, sessionID)
}

// OngoingSession returns the recorded session id, if any.
func (s *Store) OngoingSession(ctx context.Context) (string, bool, error) {
	id, ok, err := s.Get(ctx, KeyOngoingSession)
	if err != nil || !ok || id == "" {
		return "", false, err
	}
	return id, true, nil
}

// ClearOngoingSession removes the recorded session id. When sessionID is not
// empty the key is only removed if it still holds that id, so a newer
// session is never cleared by a stale caller.
func (s *Store) ClearOngoingSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return s.Delete(ctx, KeyOngoingSession)
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM local_storage WHERE key = ? AND value = ?`, KeyOngoingSession, sessionID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", KeyOngoingSession, err)
	}
	return nil
}

// SaveLastResult keeps the analysis result of the most recent analysis.
func (s *Store) SaveLastResult(ctx context.Context, sessionID string, result map[string]any) error {
	data, err := json.Marshal(lastResult{SessionID: sessionID, Result: result})
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return s.Set(ctx, KeyLastResult, string(data))
}

// LastResult returns the most recent analysis result and its session id.
func (s *Store) LastResult(ctx context.Context) (string, map[string]any, bool, error) {
	raw, ok, err := s.Get(ctx, KeyLastResult)
	if err != nil || !ok {
		return "", nil, false, err
	}
	var lr lastResult
	if err := json.Unmarshal([]byte(raw), &lr); err != nil {
		return "", nil, false, fmt.Errorf("decode last result: %w", err)
	}
	return lr.SessionID, lr.Result, true, nil
}

type lastResult struct {
	SessionID string         `json:"session_id"`
	Result    map[string]any `json:"analysis_result"`
}
