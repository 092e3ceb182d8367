package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/franz/movie-checklist/internal/library"
	"github.com/franz/movie-checklist/internal/util"
)

// Cache provides database-backed caching for detail lookups.
// Search pages always go to the backend.
type Cache struct {
	db   *sql.DB
	next Backend
	ttl  time.Duration
	now  func() time.Time
}

// NewCache creates a new cache instance. A ttl of zero disables caching.
func NewCache(db *sql.DB, next Backend, ttl time.Duration) *Cache {
	return &Cache{
		db:   db,
		next: next,
		ttl:  ttl,
		now:  time.Now,
	}
}

// EnsureSchema creates the cache table if it doesn't exist
func (c *Cache) EnsureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS catalog_cache (
		media_type TEXT NOT NULL,
		catalog_id INTEGER NOT NULL,
		payload TEXT NOT NULL, -- JSON detail payload
		cached_at INTEGER NOT NULL, -- unix seconds
		hit_count INTEGER DEFAULT 0,
		PRIMARY KEY (media_type, catalog_id)
	);

	CREATE INDEX IF NOT EXISTS idx_catalog_cache_cached_at ON catalog_cache(cached_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create catalog_cache table: %w", err)
	}

	return nil
}

// SearchMulti implements Backend without caching
func (c *Cache) SearchMulti(ctx context.Context, query string, page int) (*SearchPage, error) {
	return c.next.SearchMulti(ctx, query, page)
}

// Details retrieves details with cache support.
// Checks cache first, falls back to the backend on a miss or stale entry.
func (c *Cache) Details(ctx context.Context, id int64, mediaType library.MediaType) (*Detail, error) {
	if c.ttl <= 0 {
		return c.next.Details(ctx, id, mediaType)
	}

	cached, err := c.getFromCache(ctx, id, mediaType)
	if err != nil {
		util.DebugLog("Catalog cache read failed for %s/%d: %v", mediaType, id, err)
	} else if cached != nil {
		util.DebugLog("Catalog cache hit: %s/%d", mediaType, id)
		c.incrementHitCount(ctx, id, mediaType)
		return cached, nil
	}

	util.DebugLog("Catalog cache miss: %s/%d, querying API", mediaType, id)
	detail, err := c.next.Details(ctx, id, mediaType)
	if err != nil {
		return nil, err
	}

	if err := c.storeInCache(ctx, detail, mediaType); err != nil {
		// Don't fail the lookup if caching fails
		util.WarnLog("Failed to cache catalog details: %v", err)
	}

	return detail, nil
}

// getFromCache returns a fresh cached detail, or nil
func (c *Cache) getFromCache(ctx context.Context, id int64, mediaType library.MediaType) (*Detail, error) {
	query := `
		SELECT payload FROM catalog_cache
		WHERE media_type = ? AND catalog_id = ? AND cached_at >= ?
	`

	var payload string
	err := c.db.QueryRowContext(ctx, query, string(mediaType), id, c.now().Add(-c.ttl).Unix()).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	var detail Detail
	if err := json.Unmarshal([]byte(payload), &detail); err != nil {
		return nil, fmt.Errorf("failed to decode cached payload: %w", err)
	}
	return &detail, nil
}

// storeInCache stores a lookup result in the cache
func (c *Cache) storeInCache(ctx context.Context, detail *Detail, mediaType library.MediaType) error {
	payload, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO catalog_cache (media_type, catalog_id, payload, cached_at, hit_count)
		VALUES (?, ?, ?, ?, COALESCE((SELECT hit_count FROM catalog_cache WHERE media_type = ? AND catalog_id = ?), 0))
	`

	_, err = c.db.ExecContext(ctx, query, string(mediaType), detail.ID, string(payload), c.now().Unix(), string(mediaType), detail.ID)
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}

	return nil
}

// incrementHitCount increments the cache hit counter
func (c *Cache) incrementHitCount(ctx context.Context, id int64, mediaType library.MediaType) {
	query := `UPDATE catalog_cache SET hit_count = hit_count + 1 WHERE media_type = ? AND catalog_id = ?`
	if _, err := c.db.ExecContext(ctx, query, string(mediaType), id); err != nil {
		util.DebugLog("Failed to increment hit count: %v", err)
	}
}

// GetStats returns cache statistics
func (c *Cache) GetStats() (entries int, totalHits int64, err error) {
	query := `SELECT COUNT(*), COALESCE(SUM(hit_count), 0) FROM catalog_cache`
	err = c.db.QueryRow(query).Scan(&entries, &totalHits)
	return
}

// ClearCache removes all cached entries
func (c *Cache) ClearCache() error {
	_, err := c.db.Exec("DELETE FROM catalog_cache")
	return err
}

// ClearOldEntries removes cache entries older than the specified duration
func (c *Cache) ClearOldEntries(olderThan time.Duration) (int, error) {
	cutoff := c.now().Add(-olderThan).Unix()
	result, err := c.db.Exec("DELETE FROM catalog_cache WHERE cached_at < ?", cutoff)
	if err != nil {
		return 0, err
	}

	rows, _ := result.RowsAffected()
	return int(rows), nil
}
