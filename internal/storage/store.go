// Package storage holds the durable client-side slots that survive between
// runs: the session token and the UI theme.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/benvon/expense-console/internal/config"
)

// Slot names shared with the web client's local storage
const (
	KeyToken = "userToken"
	KeyTheme = "theme"
)

// ErrNotFound is returned by Get when a slot is empty
var ErrNotFound = errors.New("storage: key not found")

// Store is a small string key/value store
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Ensure concrete types implement the interface
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FileStore)(nil)
	_ Store = (*RedisStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)

// Open builds the store selected by configuration
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return NewMemoryStore(), nil
	case config.StoreFile:
		return NewFileStore(filepath.Join(cfg.StateDir, "state.yaml")), nil
	case config.StoreRedis:
		return NewRedisStore(ctx, cfg.RedisURL)
	case config.StoreSQLite:
		return NewSQLiteStore(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
