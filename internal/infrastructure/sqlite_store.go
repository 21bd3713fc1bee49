package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"buzzchat/internal/interfaces"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists documents in a single storage_items table. It is the
// default driver for single-seller installs.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	// one connection: sqlite has a single writer, and ":memory:" databases
	// are per connection
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS storage_items (
			namespace TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (namespace, key)
		);
	`)
	if err != nil {
		return fmt.Errorf("create storage_items table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, ns, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM storage_items WHERE namespace = ? AND key = ?", ns, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", ns, key, err)
	}
	return []byte(value), nil
}

func (s *SQLiteStore) Set(ctx context.Context, ns, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO storage_items (namespace, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, ns, key, string(value))
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", ns, key, err)
	}
	return nil
}

func (s *SQLiteStore) SetIfAbsent(ctx context.Context, ns, key string, value []byte) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO storage_items (namespace, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (namespace, key) DO NOTHING
	`, ns, key, string(value))
	if err != nil {
		return false, fmt.Errorf("insert %s/%s: %w", ns, key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert %s/%s: %w", ns, key, err)
	}
	return n == 1, nil
}

func (s *SQLiteStore) Remove(ctx context.Context, ns, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM storage_items WHERE namespace = ? AND key = ?", ns, key); err != nil {
		return fmt.Errorf("remove %s/%s: %w", ns, key, err)
	}
	return nil
}

func (s *SQLiteStore) Keys(ctx context.Context, ns string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM storage_items WHERE namespace = ? ORDER BY key", ns)
	if err != nil {
		return nil, fmt.Errorf("list keys of %s: %w", ns, err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
