package utils

import "sync"

// KeyedLock provides one mutex per string key so that callers working on
// the same key serialize while callers on different keys proceed in
// parallel. Locks are created lazily and never removed; the key space
// here (addresses, suburb buckets) is small.
type KeyedLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedLock creates an empty KeyedLock.
func NewKeyedLock() *KeyedLock {
	return &KeyedLock{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use.
func (k *KeyedLock) Lock(key string) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
}

// Unlock releases the mutex for key. Unlocking a key that was never
// locked is a programming error and panics, same as sync.Mutex.
func (k *KeyedLock) Unlock(key string) {
	k.mu.Lock()
	m := k.locks[key]
	k.mu.Unlock()

	m.Unlock()
}
