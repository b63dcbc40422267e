package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rcliao/passage/internal/state"
)

// KV is the key-value table a timeline mirrors itself into. It implements
// state.PersistentStore, whose calls carry no context.
type KV struct {
	db *sql.DB
}

// KV returns the store's key-value mirror.
func (s *SQLiteStore) KV() *KV {
	return &KV{db: s.db}
}

var _ state.PersistentStore = (*KV)(nil)

// Get returns the value under key, or state.ErrNotFound.
func (k *KV) Get(key string) (string, error) {
	var v string
	err := k.db.QueryRowContext(context.Background(), `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("kv %q: %w", key, state.ErrNotFound)
	}
	return v, err
}

func (k *KV) Set(key, value string) error {
	_, err := k.db.ExecContext(context.Background(),
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (k *KV) Delete(key string) error {
	_, err := k.db.ExecContext(context.Background(), `DELETE FROM kv WHERE key = ?`, key)
	return err
}
