package scholar

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultCacheTTL is how long a cached page stays fresh. Citation counts
// move slowly; a day avoids re-hitting the source for repeated jobs.
const DefaultCacheTTL = 24 * time.Hour

// PageCache is a sqlite-backed cache of fetched profile pages.
type PageCache struct {
	db  *sql.DB
	ttl time.Duration
}

// OpenPageCache opens or creates the cache database at path.
func OpenPageCache(path string, ttl time.Duration) (*PageCache, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening page cache: %w", err)
	}

	// SQLite doesn't support concurrent writes.
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE IF NOT EXISTS pages (
			url TEXT PRIMARY KEY,
			html TEXT NOT NULL,
			fetched_at INTEGER NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating page cache schema: %w", err)
	}
	return &PageCache{db: db, ttl: ttl}, nil
}

// Get returns the cached HTML for a URL if present and fresh.
func (c *PageCache) Get(url string) (string, bool, error) {
	var html string
	var fetchedAt int64
	err := c.db.QueryRow(
		"SELECT html, fetched_at FROM pages WHERE url = ?", url,
	).Scan(&html, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading page cache: %w", err)
	}
	if time.Since(time.Unix(fetchedAt, 0)) > c.ttl {
		return "", false, nil
	}
	return html, true, nil
}

// Put stores a fetched page, replacing any stale entry.
func (c *PageCache) Put(url, html string) error {
	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO pages (url, html, fetched_at) VALUES (?, ?, ?)",
		url, html, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("writing page cache: %w", err)
	}
	return nil
}

// Prune removes entries older than the TTL.
func (c *PageCache) Prune() error {
	cutoff := time.Now().Add(-c.ttl).Unix()
	if _, err := c.db.Exec("DELETE FROM pages WHERE fetched_at < ?", cutoff); err != nil {
		return fmt.Errorf("pruning page cache: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (c *PageCache) Close() error {
	return c.db.Close()
}
