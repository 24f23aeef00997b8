// Package sqlite implements geoclient's persistent local storage: a small
// key/value store, in the manner of a browser's localStorage, that holds the
// auth token between runs. SQLite is the query engine and items.jsonl in the
// data directory is the source of truth.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/geoclient/pkg/types"
)

// dbFileName is the SQLite file created in the data directory.
const dbFileName = "geoclient.db"

var _ types.TokenStore = (*Backend)(nil)

// Backend is the SQLite-backed local storage.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	dataDir  string
	db       *sql.DB
	clock    clockwork.Clock
}

// Option configures a Backend.
type Option func(*Backend)

// WithClock sets the clock used for updated_at timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(b *Backend) { b.clock = c }
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach opens storage in config.DataDir, creating the directory if needed.
// The database file is rebuilt from items.jsonl on every attach.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFileName)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", dbPath, err)
	}

	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	jsonlPath := filepath.Join(dataDir, itemsJSONL)
	if err := ensureJSONL(jsonlPath); err != nil {
		db.Close()
		return err
	}
	records, err := readJSONL(jsonlPath)
	if err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}
	if err := loadItems(db, records); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.db = db
	b.dataDir = dataDir
	b.attached = true
	return nil
}

// Detach releases the database. After Detach, all operations return
// ErrStorageDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	b.attached = false
	if b.db != nil {
		err := b.db.Close()
		b.db = nil
		if err != nil {
			return err
		}
	}
	return nil
}

// GetItem returns the value stored under key, or ErrNotFound.
func (b *Backend) GetItem(key string) (string, error) {
	if key == "" {
		return "", types.ErrInvalidKey
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return "", types.ErrStorageDetached
	}

	var value string
	err := b.db.QueryRow("SELECT item_value FROM items WHERE item_key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", types.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting item %s: %w", key, err)
	}
	return value, nil
}

// SetItem stores value under key. Updating a key keeps its item_id.
func (b *Backend) SetItem(key, value string) error {
	if key == "" {
		return types.ErrInvalidKey
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStorageDetached
	}

	now := b.clock.Now().UTC().Format(time.RFC3339)

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("UPDATE items SET item_value = ?, updated_at = ? WHERE item_key = ?", value, now, key)
	if err != nil {
		return fmt.Errorf("updating item %s: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := tx.Exec(
			"INSERT INTO items (item_id, item_key, item_value, updated_at) VALUES (?, ?, ?, ?)",
			generateUUID(), key, value, now,
		); err != nil {
			return fmt.Errorf("inserting item %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing item %s: %w", key, err)
	}
	return b.persistLocked()
}

// RemoveItem deletes key. Removing a missing key is not an error.
func (b *Backend) RemoveItem(key string) error {
	if key == "" {
		return types.ErrInvalidKey
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStorageDetached
	}

	res, err := b.db.Exec("DELETE FROM items WHERE item_key = ?", key)
	if err != nil {
		return fmt.Errorf("deleting item %s: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	return b.persistLocked()
}

// Keys returns every stored key in sorted order.
func (b *Backend) Keys() ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStorageDetached
	}

	rows, err := b.db.Query("SELECT item_key FROM items")
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// persistLocked rewrites items.jsonl from the database.
// The caller must hold b.mu write lock.
func (b *Backend) persistLocked() error {
	records, err := dumpItems(b.db)
	if err != nil {
		return err
	}
	if err := writeJSONL(filepath.Join(b.dataDir, itemsJSONL), records); err != nil {
		return fmt.Errorf("persisting %s: %w", itemsJSONL, err)
	}
	return nil
}

// generateUUID generates a new UUID v7 for item IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}
