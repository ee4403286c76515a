package blips

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

/* Settings persistence. The original app kept API keys and user settings in
browser localStorage; here it is an explicit injected store. */

// ErrSettingNotFound is returned by Get for a missing key.
var ErrSettingNotFound = errors.New("setting not found")

// SettingStore is the key-value persistence used for API keys and user
// settings. No ambient global: pass it at construction.
type SettingStore interface {
	Get(key string) (string, error)
	Put(key, value string) error
	Delete(key string) error
	Close() error
}

// MemoryStore is an in-process SettingStore for tests and ephemeral runs.
type MemoryStore struct {
	m map[string]string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]string)}
}

// Get implements SettingStore.
func (s *MemoryStore) Get(key string) (string, error) {
	v, ok := s.m[key]
	if !ok {
		return "", fmt.Errorf("%q: %w", key, ErrSettingNotFound)
	}
	return v, nil
}

// Put implements SettingStore.
func (s *MemoryStore) Put(key, value string) error {
	s.m[key] = value
	return nil
}

// Delete implements SettingStore.
func (s *MemoryStore) Delete(key string) error {
	delete(s.m, key)
	return nil
}

// Close implements SettingStore.
func (s *MemoryStore) Close() error { return nil }

// SQLiteStore is a SettingStore backed by a single-table sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (and if needed initializes) the settings database at
// the given path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS settings (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init settings db: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Get implements SettingStore.
func (s *SQLiteStore) Get(key string) (string, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%q: %w", key, ErrSettingNotFound)
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// Put implements SettingStore.
func (s *SQLiteStore) Put(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// Delete implements SettingStore.
func (s *SQLiteStore) Delete(key string) error {
	_, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key)
	return err
}

// Close implements SettingStore.
func (s *SQLiteStore) Close() error { return s.db.Close() }
