// Package store persists definitive solver answers in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"aispverify/internal/logging"
	"aispverify/internal/smt"

	_ "modernc.org/sqlite"
)

// ProofCache persists definitive solver answers keyed by the SHA-256 of the
// full solver script. It implements smt.Cache.
type ProofCache struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
	now    func() time.Time
}

var _ smt.Cache = (*ProofCache)(nil)

// CacheStats summarizes the cache contents.
type CacheStats struct {
	Entries   int64     `json:"entries"`
	Proven    int64     `json:"proven"`
	Disproven int64     `json:"disproven"`
	Hits      int64     `json:"hits"`
	Oldest    time.Time `json:"oldest,omitempty"`
}

// OpenProofCache opens (or creates) the cache database at path. ":memory:"
// gives a private in-memory cache.
func OpenProofCache(path string) (*ProofCache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	c := &ProofCache{db: db, dbPath: path, now: time.Now}
	if err := c.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.StoreDebug("Proof cache opened at %s", path)
	return c, nil
}

func (c *ProofCache) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS proof_cache (
		key TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		proof TEXT,
		model TEXT,
		unsat_core TEXT,
		reason TEXT,
		hits INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_proof_cache_created ON proof_cache(created_at);
	`
	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Path returns the database location.
func (c *ProofCache) Path() string {
	return c.dbPath
}

// Close closes the database connection.
func (c *ProofCache) Close() error {
	return c.db.Close()
}

// Lookup returns the stored answer for key, or (nil, nil) when there is none.
func (c *ProofCache) Lookup(ctx context.Context, key string) (*smt.CacheEntry, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Lookup")
	defer timer.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		status             string
		proof, model, core sql.NullString
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT status, proof, model, unsat_core FROM proof_cache WHERE key = ?`, key,
	).Scan(&status, &proof, &model, &core)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("proof cache lookup: %w", err)
	}

	if _, err := c.db.ExecContext(ctx, `UPDATE proof_cache SET hits = hits + 1 WHERE key = ?`, key); err != nil {
		logging.StoreDebug("Failed to count cache hit for %s: %v", shortKey(key), err)
	}

	logging.StoreDebug("Proof cache hit: %s (%s)", shortKey(key), status)
	return &smt.CacheEntry{
		Status: smt.SatStatus(status),
		Proof:  proof.String,
		Model:  model.String,
		Core:   core.String,
	}, nil
}

// Save stores entry under key, replacing any earlier answer. Only sat and
// unsat answers are accepted.
func (c *ProofCache) Save(ctx context.Context, key string, entry smt.CacheEntry) error {
	if entry.Status != smt.Sat && entry.Status != smt.Unsat {
		return fmt.Errorf("proof cache: refusing to store %q answer", entry.Status)
	}

	timer := logging.StartTimer(logging.CategoryStore, "Save")
	defer timer.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO proof_cache (key, status, proof, model, unsat_core, reason, hits, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   status = excluded.status,
		   proof = excluded.proof,
		   model = excluded.model,
		   unsat_core = excluded.unsat_core,
		   reason = excluded.reason,
		   created_at = excluded.created_at`,
		key, string(entry.Status), nullable(entry.Proof), nullable(entry.Model), nullable(entry.Core),
		reasonFor(entry.Status), c.now().Unix(),
	)
	if err != nil {
		logging.StoreError("Failed to store proof %s: %v", shortKey(key), err)
		return fmt.Errorf("proof cache save: %w", err)
	}
	logging.StoreDebug("Proof cached: %s (%s)", shortKey(key), entry.Status)
	return nil
}

// Prune deletes entries older than olderThan and returns how many went.
func (c *ProofCache) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-olderThan).Unix()
	res, err := c.db.ExecContext(ctx, `DELETE FROM proof_cache WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("proof cache prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	logging.StoreDebug("Pruned %d cached proofs older than %v", n, olderThan)
	return n, nil
}

// Stats counts entries by answer and sums recorded hits.
func (c *ProofCache) Stats(ctx context.Context) (CacheStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var (
		st     CacheStats
		hits   sql.NullInt64
		oldest sql.NullInt64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(CASE WHEN status = 'unsat' THEN 1 END),
		        COUNT(CASE WHEN status = 'sat' THEN 1 END),
		        SUM(hits),
		        MIN(created_at)
		 FROM proof_cache`,
	).Scan(&st.Entries, &st.Proven, &st.Disproven, &hits, &oldest)
	if err != nil {
		return CacheStats{}, fmt.Errorf("proof cache stats: %w", err)
	}
	st.Hits = hits.Int64
	if oldest.Valid {
		st.Oldest = time.Unix(oldest.Int64, 0)
	}
	return st, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func reasonFor(status smt.SatStatus) string {
	if status == smt.Unsat {
		return "negated goal unsatisfiable"
	}
	return "negated goal satisfiable"
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
