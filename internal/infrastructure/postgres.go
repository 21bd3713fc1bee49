package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"buzzchat/internal/interfaces"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresClient stores documents as jsonb rows, one row per (namespace, key).
type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool}

	if err := client.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (p *PostgresClient) Migrate(ctx context.Context) error {
	_, err := p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS storage_items (
			namespace VARCHAR(128) NOT NULL,
			key VARCHAR(128) NOT NULL,
			value JSONB NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (namespace, key)
		);
	`)
	if err != nil {
		return fmt.Errorf("create storage_items table: %w", err)
	}
	// tables created before per-entry api key index rows used VARCHAR(64)
	if _, err := p.Pool.Exec(ctx, `ALTER TABLE storage_items ALTER COLUMN key TYPE VARCHAR(128)`); err != nil {
		return fmt.Errorf("widen storage_items.key: %w", err)
	}
	return nil
}

func (p *PostgresClient) Get(ctx context.Context, ns, key string) ([]byte, error) {
	var value string
	err := p.Pool.QueryRow(ctx,
		"SELECT value::text FROM storage_items WHERE namespace=$1 AND key=$2", ns, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, interfaces.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", ns, key, err)
	}
	return []byte(value), nil
}

func (p *PostgresClient) Set(ctx context.Context, ns, key string, value []byte) error {
	_, err := p.Pool.Exec(ctx, `
		INSERT INTO storage_items (namespace, key, value, updated_at)
		VALUES ($1, $2, $3::jsonb, NOW())
		ON CONFLICT (namespace, key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()
	`, ns, key, string(value))
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", ns, key, err)
	}
	return nil
}

func (p *PostgresClient) SetIfAbsent(ctx context.Context, ns, key string, value []byte) (bool, error) {
	tag, err := p.Pool.Exec(ctx, `
		INSERT INTO storage_items (namespace, key, value, updated_at)
		VALUES ($1, $2, $3::jsonb, NOW())
		ON CONFLICT (namespace, key) DO NOTHING
	`, ns, key, string(value))
	if err != nil {
		return false, fmt.Errorf("insert %s/%s: %w", ns, key, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *PostgresClient) Remove(ctx context.Context, ns, key string) error {
	if _, err := p.Pool.Exec(ctx, "DELETE FROM storage_items WHERE namespace=$1 AND key=$2", ns, key); err != nil {
		return fmt.Errorf("remove %s/%s: %w", ns, key, err)
	}
	return nil
}

func (p *PostgresClient) Keys(ctx context.Context, ns string) ([]string, error) {
	rows, err := p.Pool.Query(ctx, "SELECT key FROM storage_items WHERE namespace=$1 ORDER BY key", ns)
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

func (p *PostgresClient) Close() error {
	p.Pool.Close()
	return nil
}
