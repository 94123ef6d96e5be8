package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"flip-analyzer/cache"
)

// PostgresStore persists cache entries in PostgreSQL. The table is an
// opaque key-value store: the pipeline never queries inside the JSON
// values.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection, runs schema migrations, and
// returns a ready-to-use store.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS cache_entries (
			key       TEXT        PRIMARY KEY,
			value     JSONB       NOT NULL,
			stored_at TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_cache_entries_stored_at ON cache_entries(stored_at);
	`)
	return err
}

// Get fetches one entry; a missing key returns (nil, nil).
func (ps *PostgresStore) Get(key string) (*cache.Entry, error) {
	var entry cache.Entry
	err := ps.db.QueryRow(`
		SELECT value, stored_at FROM cache_entries WHERE key = $1
	`, key).Scan(&entry.Value, &entry.StoredAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get %q: %w", key, err)
	}
	return &entry, nil
}

// Put upserts an entry. Entries are replaced whole, never patched.
func (ps *PostgresStore) Put(key string, value []byte, storedAt time.Time) error {
	_, err := ps.db.Exec(`
		INSERT INTO cache_entries (key, value, stored_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, stored_at = EXCLUDED.stored_at
	`, key, value, storedAt)
	if err != nil {
		return fmt.Errorf("postgres: put %q: %w", key, err)
	}
	return nil
}

// Prune deletes entries older than the given cutoff.
func (ps *PostgresStore) Prune(cutoff time.Time) (int64, error) {
	res, err := ps.db.Exec(`DELETE FROM cache_entries WHERE stored_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: prune: %w", err)
	}
	return res.RowsAffected()
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
