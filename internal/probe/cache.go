package probe

import (
	"database/sql"
	"fmt"
	"time"

	csmap "github.com/mhmtszr/concurrent-swiss-map"
	_ "modernc.org/sqlite"

	"github.com/Digital-Shane/kometa-resolve/internal/logging"
)

const createTableStmt = `CREATE TABLE IF NOT EXISTS probe_cache (
	url TEXT PRIMARY KEY,
	status INTEGER NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	content_length INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	ts INTEGER NOT NULL
)`

type cachedEntry struct {
	result Result
	ts     int64
}

// Cache persists probe results keyed by URL. Reads go through an
// in-process map first so a scan probing the same URL across many files
// touches sqlite once. Cache failures never fail a scan: reads degrade
// to misses and writes are logged and dropped.
type Cache struct {
	db  *sql.DB
	mem *csmap.CsMap[string, cachedEntry]

	now func() time.Time
}

// Open opens (creating if needed) the probe cache at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open probe cache: %w", err)
	}
	if _, err := db.Exec(createTableStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("init probe cache: %w", err)
	}
	return &Cache{
		db:  db,
		mem: csmap.Create[string, cachedEntry](),
		now: time.Now,
	}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached result for url when its age does not exceed
// maxAge. A zero maxAge treats every stored entry as expired.
func (c *Cache) Get(url string, maxAge time.Duration) (Result, bool) {
	now := c.now().Unix()
	ttl := int64(maxAge / time.Second)

	if e, ok := c.mem.Load(url); ok {
		if now-e.ts > ttl {
			return Result{}, false
		}
		return e.result, true
	}

	var (
		res Result
		ts  int64
	)
	row := c.db.QueryRow(
		`SELECT status, content_type, content_length, error, ts FROM probe_cache WHERE url = ?`, url)
	if err := row.Scan(&res.Status, &res.ContentType, &res.ContentLength, &res.Err, &ts); err != nil {
		if err != sql.ErrNoRows {
			logging.Debug("probe cache: read %s: %v", url, err)
		}
		return Result{}, false
	}
	res.URL = url

	if now-ts > ttl {
		return Result{}, false
	}
	c.mem.Store(url, cachedEntry{result: res, ts: ts})
	return res, true
}

// Put stores a probe result, replacing any prior entry for the URL.
func (c *Cache) Put(url string, res Result) {
	ts := c.now().Unix()
	c.mem.Store(url, cachedEntry{result: res, ts: ts})

	_, err := c.db.Exec(
		`INSERT INTO probe_cache (url, status, content_type, content_length, error, ts)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
		   status = excluded.status,
		   content_type = excluded.content_type,
		   content_length = excluded.content_length,
		   error = excluded.error,
		   ts = excluded.ts`,
		url, res.Status, res.ContentType, res.ContentLength, res.Err, ts)
	if err != nil {
		logging.Warn("probe cache: write %s: %v", url, err)
	}
}
