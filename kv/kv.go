// Package kv is a small durable key-value layer on the shared SQLite
// database. It backs the query-embedding cache snapshot and user settings.
package kv

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/semhist/semhist/engine"
)

var migrations = []engine.Migration{
	{
		Version: 1,
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      BLOB,
    updated_at INTEGER NOT NULL
)`,
		},
	},
}

// Store provides get/set-by-key persistence. Safe for concurrent use via the
// underlying *sql.DB.
type Store struct {
	db *sql.DB
}

// Open ensures the kv schema exists and returns a Store over db.
func Open(ctx context.Context, db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("kv: db is nil")
	}
	if err := engine.Migrate(ctx, db, "kv", migrations); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Get returns the value stored under key, or (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("kv: get %q: %w", key, err)
	}
	return value, nil
}

// Put stores value under key, replacing any previous value.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv(key, value, updated_at) VALUES(?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("kv: put %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("kv: delete %q: %w", key, err)
	}
	return nil
}

// GetJSON unmarshals the value under key into out. Returns (false, nil) when
// the key is absent.
func (s *Store) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	raw, err := s.Get(ctx, key)
	if err != nil || raw == nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("kv: decode %q: %w", key, err)
	}
	return true, nil
}

// PutJSON marshals v and stores it under key.
func (s *Store) PutJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: encode %q: %w", key, err)
	}
	return s.Put(ctx, key, raw)
}
