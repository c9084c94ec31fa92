package snooze

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-snooze/internal/infrastructure/database"
)

// SQLiteStore keeps the snooze document in the snooze_store table, one
// row per key.
type SQLiteStore struct {
	db  *sql.DB
	key string
}

// NewSQLiteStore creates a store bound to key.
//
// Parameters:
//   - db: Database with the snooze_store migration applied
//   - key: Row key, normally config snooze.store_key
func NewSQLiteStore(db *sql.DB, key string) *SQLiteStore {
	return &SQLiteStore{db: db, key: key}
}

// Load returns the stored document, or nil if the row does not exist.
func (s *SQLiteStore) Load(ctx context.Context) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM snooze_store WHERE key = ?", s.key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(fmt.Errorf("loading %s: %w", s.key, err))
	}
	return []byte(data), nil
}

// Save upserts the document.
func (s *SQLiteStore) Save(ctx context.Context, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snooze_store (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		s.key, string(data), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return classify(fmt.Errorf("saving %s: %w", s.key, err))
	}
	return nil
}

// classify marks SQLite busy/locked/io failures as transient.
func classify(err error) error {
	if database.IsTransient(err) {
		return fmt.Errorf("%w: %w", ErrStoreTransient, err)
	}
	return err
}
