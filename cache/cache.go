// Package cache provides get-or-fetch-with-TTL caching over a pluggable
// key-value store. Values are JSON-encoded; staleness is judged purely
// on the stored timestamp.
package cache

import (
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"flip-analyzer/models"
	"flip-analyzer/utils"
)

// ErrStore marks cache-store failures. Unlike fetch or extraction
// problems, these are surfaced to the caller as a distinct fatal class.
var ErrStore = errors.New("cache store failure")

// Entry is a raw stored value with its write timestamp.
type Entry struct {
	Value    []byte
	StoredAt time.Time
}

// Store is the persistence boundary: an opaque TTL key-value store.
// Get returns (nil, nil) for a missing key.
type Store interface {
	Get(key string) (*Entry, error)
	Put(key string, value []byte, storedAt time.Time) error
}

// Cache wraps a Store with TTL staleness checks and per-key
// single-flight locking, so concurrent callers on the same key fetch
// once.
type Cache struct {
	store  Store
	ttl    time.Duration
	locks  *utils.KeyedLock
	logger *utils.Logger

	now func() time.Time
}

// New creates a Cache with the given TTL in days.
func New(store Store, ttlDays int, logger *utils.Logger) *Cache {
	return &Cache{
		store:  store,
		ttl:    time.Duration(ttlDays) * 24 * time.Hour,
		locks:  utils.NewKeyedLock(),
		logger: logger,
		now:    time.Now,
	}
}

// Stale reports whether an entry written at storedAt has outlived the TTL.
func (c *Cache) Stale(storedAt time.Time) bool {
	return c.now().Sub(storedAt) > c.ttl
}

// GetOrFetch returns the cached value for key when a fresh entry exists;
// otherwise it invokes fetch, upserts the result with a new timestamp
// and returns it. Holding the per-key lock for the whole operation
// prevents a double fetch by concurrent callers.
//
// On a Put failure the fetched value is still returned together with a
// store error, preserving the availability contract.
func GetOrFetch[T any](c *Cache, key string, fetch func() (T, error)) (T, time.Time, error) {
	var zero T

	c.locks.Lock(key)
	defer c.locks.Unlock(key)

	entry, err := c.store.Get(key)
	if err != nil {
		return zero, time.Time{}, fmt.Errorf("%w: get %q: %v", ErrStore, key, err)
	}
	if entry != nil && !c.Stale(entry.StoredAt) {
		var v T
		if err := json.Unmarshal(entry.Value, &v); err == nil {
			c.logger.Debug("[cache] Hit for %q (stored %s)", key, entry.StoredAt.Format(time.RFC3339))
			return v, entry.StoredAt, nil
		}
		c.logger.Warn("[cache] Corrupt entry for %q, refetching", key)
	}

	v, err := fetch()
	if err != nil {
		return zero, time.Time{}, err
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return zero, time.Time{}, fmt.Errorf("%w: encode %q: %v", ErrStore, key, err)
	}

	storedAt := c.now()
	if err := c.store.Put(key, raw, storedAt); err != nil {
		return v, storedAt, fmt.Errorf("%w: put %q: %v", ErrStore, key, err)
	}
	c.logger.Debug("[cache] Stored %q", key)
	return v, storedAt, nil
}

// AddressKey builds the cache key for a property estimate.
func AddressKey(address string) string {
	return "address:" + models.NormalizeAddress(address)
}

// SalesKey builds the cache key for a comparable-sales batch.
func SalesKey(suburb string, bedrooms int) string {
	return fmt.Sprintf("sales:%s:%d", strings.ToLower(strings.TrimSpace(suburb)), bedrooms)
}
