package infrastructure

import (
	"context"
	"fmt"

	"buzzchat/internal/interfaces"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// StorageOptions selects and configures a KeyValueStore driver
type StorageOptions struct {
	Driver      string
	SQLitePath  string
	DatabaseURL string
	RedisURL    string
}

// OpenStore connects the configured driver
func OpenStore(ctx context.Context, opts StorageOptions) (interfaces.KeyValueStore, error) {
	switch opts.Driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite, "":
		return NewSQLiteStore(opts.SQLitePath)
	case DriverPostgres:
		return NewPostgresClient(ctx, opts.DatabaseURL)
	case DriverRedis:
		return NewRedisStore(opts.RedisURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}
