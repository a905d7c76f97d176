package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Store is the client-local storage: session credentials, the status
// override table and the activity log.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at the given path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL lets the TUI and a one-shot CLI command share the file.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key         TEXT PRIMARY KEY,
		value       TEXT NOT NULL,
		updated_at  DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id     TEXT NOT NULL DEFAULT '',
		kind        TEXT NOT NULL,
		content     TEXT DEFAULT '',
		timestamp   DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS events_task ON events(task_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// --- Key/value ---

// Get returns the value stored under key, or "" if absent.
func (s *Store) Get(key string) (string, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now,
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// --- Session ---

// Token returns the stored bearer credential, "" when logged out.
// Read errors are logged and treated as no token.
func (s *Store) Token() string {
	tok, err := s.Get(KeyToken)
	if err != nil {
		log.WithError(err).Warn("failed to read token")
		return ""
	}
	return tok
}

// SaveSession stores the token and, when known, the user id.
func (s *Store) SaveSession(token, userID string) error {
	if err := s.Set(KeyToken, token); err != nil {
		return err
	}
	if userID == "" {
		return nil
	}
	return s.Set(KeyUserID, userID)
}

// UserID returns the stored user id.
func (s *Store) UserID() (string, error) {
	return s.Get(KeyUserID)
}

// ClearSession forgets the token and user id.
func (s *Store) ClearSession() error {
	if err := s.Delete(KeyToken); err != nil {
		return err
	}
	return s.Delete(KeyUserID)
}

// --- Status override table ---

// LoadOverrides returns the persisted UI label -> backend enum table.
// Missing or corrupt data yields an empty table.
func (s *Store) LoadOverrides() (map[string]string, error) {
	raw, err := s.Get(KeyStatusMap)
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		log.WithError(err).Warn("status override table is corrupt, ignoring it")
		return map[string]string{}, nil
	}
	return out, nil
}

// SaveOverrides replaces the persisted override table.
func (s *Store) SaveOverrides(m map[string]string) error {
	if m == nil {
		m = map[string]string{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal status map: %w", err)
	}
	return s.Set(KeyStatusMap, string(data))
}

// --- Activity log ---

// AddEvent records an event for a task.
func (s *Store) AddEvent(taskID string, kind EventKind, content string) {
	now := time.Now().UTC()
	if _, err := s.db.Exec(
		`INSERT INTO events (task_id, kind, content, timestamp) VALUES (?, ?, ?, ?)`,
		taskID, string(kind), content, now,
	); err != nil {
		log.WithError(err).WithField("task", taskID).Warn("failed to record event")
	}
}

// GetEvents returns all events for a task, oldest first.
func (s *Store) GetEvents(taskID string) ([]Event, error) {
	return s.queryEvents(
		`SELECT id, task_id, kind, content, timestamp FROM events WHERE task_id = ? ORDER BY id`,
		taskID,
	)
}

// RecentEvents returns the last n events across all tasks, oldest first.
func (s *Store) RecentEvents(n int) ([]Event, error) {
	events, err := s.queryEvents(
		`SELECT id, task_id, kind, content, timestamp FROM events ORDER BY id DESC LIMIT ?`,
		n,
	)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

func (s *Store) queryEvents(query string, args ...any) ([]Event, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var kind string
		if err := rows.Scan(&e.ID, &e.TaskID, &kind, &e.Content, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = EventKind(kind)
		events = append(events, e)
	}
	return events, rows.Err()
}
