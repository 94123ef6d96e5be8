package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"flip-analyzer/utils"
)

func newTestCache(store Store, ttlDays int) *Cache {
	return New(store, ttlDays, utils.NewLogger())
}

func TestGetOrFetchCachesWithinTTL(t *testing.T) {
	store := NewMemoryStore()
	c := newTestCache(store, 7)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	calls := 0
	fetch := func() (string, error) {
		calls++
		return "fetched", nil
	}

	v, storedAt, err := GetOrFetch(c, "k", fetch)
	if err != nil || v != "fetched" {
		t.Fatalf("first call: v=%q err=%v", v, err)
	}
	if !storedAt.Equal(base) {
		t.Errorf("storedAt = %v, want %v", storedAt, base)
	}

	// Six days later: still fresh, no second fetch.
	c.now = func() time.Time { return base.Add(6 * 24 * time.Hour) }
	v, storedAt2, err := GetOrFetch(c, "k", fetch)
	if err != nil || v != "fetched" {
		t.Fatalf("second call: v=%q err=%v", v, err)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
	if !storedAt2.Equal(base) {
		t.Errorf("hit storedAt = %v, want original %v", storedAt2, base)
	}
}

func TestGetOrFetchRefetchesAfterTTL(t *testing.T) {
	store := NewMemoryStore()
	c := newTestCache(store, 7)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	calls := 0
	fetch := func() (int, error) {
		calls++
		return calls * 100, nil
	}

	if _, _, err := GetOrFetch(c, "k", fetch); err != nil {
		t.Fatal(err)
	}

	// Eight days later the entry is stale: exactly one refetch.
	later := base.Add(8 * 24 * time.Hour)
	c.now = func() time.Time { return later }

	v, storedAt, err := GetOrFetch(c, "k", fetch)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("fetch called %d times, want 2", calls)
	}
	if v != 200 {
		t.Errorf("got stale value %d, want refetched 200", v)
	}
	if !storedAt.Equal(later) {
		t.Errorf("storedAt = %v, want refresh time %v", storedAt, later)
	}
}

func TestGetOrFetchSingleFlight(t *testing.T) {
	store := NewMemoryStore()
	c := newTestCache(store, 7)

	var calls int32
	fetch := func() (string, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(30 * time.Millisecond)
		return "v", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, _, err := GetOrFetch(c, "same-key", fetch); err != nil || v != "v" {
				t.Errorf("GetOrFetch: v=%q err=%v", v, err)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("fetch ran %d times for one key, want 1", n)
	}
}

func TestGetOrFetchPropagatesFetchError(t *testing.T) {
	c := newTestCache(NewMemoryStore(), 7)

	wantErr := errors.New("upstream down")
	_, _, err := GetOrFetch(c, "k", func() (string, error) { return "", wantErr })
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
	if errors.Is(err, ErrStore) {
		t.Error("fetch errors must not be classified as store errors")
	}
}

type brokenStore struct {
	getErr error
	putErr error
}

func (b brokenStore) Get(string) (*Entry, error)          { return nil, b.getErr }
func (b brokenStore) Put(string, []byte, time.Time) error { return b.putErr }

func TestGetOrFetchStoreFailures(t *testing.T) {
	t.Run("get failure", func(t *testing.T) {
		c := newTestCache(brokenStore{getErr: errors.New("disk gone")}, 7)
		_, _, err := GetOrFetch(c, "k", func() (string, error) { return "v", nil })
		if !errors.Is(err, ErrStore) {
			t.Errorf("err = %v, want ErrStore", err)
		}
	})

	t.Run("put failure still yields value", func(t *testing.T) {
		c := newTestCache(brokenStore{putErr: errors.New("disk full")}, 7)
		v, _, err := GetOrFetch(c, "k", func() (string, error) { return "v", nil })
		if !errors.Is(err, ErrStore) {
			t.Errorf("err = %v, want ErrStore", err)
		}
		if v != "v" {
			t.Errorf("v = %q, want fetched value despite store failure", v)
		}
	})
}

func TestGetOrFetchCorruptEntryRefetches(t *testing.T) {
	store := NewMemoryStore()
	c := newTestCache(store, 7)

	if err := store.Put(AddressKey("1 K St"), []byte("{not json"), time.Now()); err != nil {
		t.Fatal(err)
	}

	type val struct{ N int }
	v, _, err := GetOrFetch(c, AddressKey("1 K St"), func() (val, error) { return val{N: 7}, nil })
	if err != nil {
		t.Fatal(err)
	}
	if v.N != 7 {
		t.Errorf("v = %+v, want refetched value", v)
	}
}

func TestCacheKeys(t *testing.T) {
	if a, b := AddressKey("12 King St"), AddressKey("  12  KING st "); a != b {
		t.Errorf("normalized keys differ: %q vs %q", a, b)
	}
	if got := SalesKey(" Ponsonby ", 3); got != "sales:ponsonby:3" {
		t.Errorf("SalesKey = %q", got)
	}
}
