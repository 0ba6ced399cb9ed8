package allocation

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// indexSnapshot is the persisted form of a built index. Only the records
// and the table fingerprint are stored; the key-to-position map is cheap to
// rebuild on load.
type indexSnapshot struct {
	Fingerprint string             `msgpack:"fingerprint"`
	Records     []AllocationRecord `msgpack:"records"`
}

// IndexCache owns the session's built index. It is explicitly keyed on the
// source table fingerprint: swapping in an index for a new fingerprint
// invalidates the old one, and snapshots let a restart warm-start without
// re-deriving keys from the raw table.
type IndexCache struct {
	mu      sync.RWMutex
	current *Index

	cacheDB *sql.DB
	log     zerolog.Logger
}

// NewIndexCache creates the cache and its snapshot table.
func NewIndexCache(cacheDB *sql.DB, log zerolog.Logger) (*IndexCache, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS index_snapshots (
		fingerprint TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		created_at INTEGER NOT NULL
	);`

	if _, err := cacheDB.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create index snapshot table: %w", err)
	}

	return &IndexCache{
		cacheDB: cacheDB,
		log:     log.With().Str("component", "index_cache").Logger(),
	}, nil
}

// Current returns the active index, or nil before the first build.
func (c *IndexCache) Current() *Index {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Swap installs ix as the active index and persists its snapshot. Snapshot
// persistence is best-effort: a failure is logged, not fatal, since the
// snapshot only accelerates the next startup.
func (c *IndexCache) Swap(ix *Index) {
	c.mu.Lock()
	c.current = ix
	c.mu.Unlock()

	if err := c.persistSnapshot(ix); err != nil {
		c.log.Warn().Err(err).Str("fingerprint", ix.Fingerprint()).Msg("Failed to persist index snapshot")
	}
}

// LoadSnapshot rebuilds an index from a persisted snapshot for the given
// table fingerprint. Returns false when no snapshot exists or it cannot be
// decoded (a stale or corrupt snapshot is simply ignored).
func (c *IndexCache) LoadSnapshot(fingerprint string) (*Index, bool) {
	var payload []byte
	err := c.cacheDB.QueryRow(
		"SELECT payload FROM index_snapshots WHERE fingerprint = ?", fingerprint).Scan(&payload)
	if err != nil {
		return nil, false
	}

	var snap indexSnapshot
	if err := msgpack.Unmarshal(payload, &snap); err != nil {
		c.log.Warn().Err(err).Str("fingerprint", fingerprint).Msg("Discarding undecodable index snapshot")
		return nil, false
	}
	if snap.Fingerprint != fingerprint {
		return nil, false
	}

	return BuildIndex(snap.Records, snap.Fingerprint), true
}

func (c *IndexCache) persistSnapshot(ix *Index) error {
	payload, err := msgpack.Marshal(indexSnapshot{
		Fingerprint: ix.Fingerprint(),
		Records:     ix.Records(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode index snapshot: %w", err)
	}

	// One snapshot per table version; old versions are dropped so the cache
	// never serves an index for a table that no longer exists.
	tx, err := c.cacheDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec("DELETE FROM index_snapshots"); err != nil {
		return fmt.Errorf("failed to clear old snapshots: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT INTO index_snapshots (fingerprint, payload, created_at) VALUES (?, ?, ?)",
		ix.Fingerprint(), payload, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to store index snapshot: %w", err)
	}

	return tx.Commit()
}
