package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"github.com/ujjwal16295/book-ai/internal/logging"
)

// Cache persists raw detail responses keyed by normalized title so repeat
// lookups skip the catalog entirely. This caches catalog payloads, not user
// activity; nothing about who searched or when is recoverable from it beyond
// the fetch timestamp used for expiry.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
}

// NewCache opens (or creates) the SQLite cache at path.
func NewCache(path string, ttl time.Duration) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("catalog cache: open database: %w", err)
	}

	// WAL for concurrent readers while a lookup writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog cache: enable WAL: %w", err)
	}

	c := &Cache{db: db, ttl: ttl}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog cache: migrate: %w", err)
	}
	return c, nil
}

func (c *Cache) migrate() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS volumes (
			title_key  TEXT PRIMARY KEY,
			payload    TEXT NOT NULL,
			fetched_at INTEGER NOT NULL
		)`)
	return err
}

func cacheKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// Get returns the cached volume for title, if present and fresh.
func (c *Cache) Get(ctx context.Context, title string) (volumeInfo, bool) {
	var payload string
	var fetchedAt int64
	err := c.db.QueryRowContext(ctx,
		"SELECT payload, fetched_at FROM volumes WHERE title_key = ?",
		cacheKey(title)).Scan(&payload, &fetchedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			logging.Warn("catalog cache read failed", "err", err)
		}
		return volumeInfo{}, false
	}
	if c.ttl > 0 && time.Since(time.Unix(fetchedAt, 0)) > c.ttl {
		return volumeInfo{}, false
	}
	var v volumeInfo
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		logging.Warn("catalog cache payload corrupt", "title", title, "err", err)
		return volumeInfo{}, false
	}
	return v, true
}

// Put stores the volume for title, replacing any prior entry.
func (c *Cache) Put(ctx context.Context, title string, v volumeInfo) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO volumes (title_key, payload, fetched_at) VALUES (?, ?, ?)",
		cacheKey(title), string(payload), time.Now().Unix())
	return err
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}
