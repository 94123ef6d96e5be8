package utils

import (
	"sync"
	"testing"
)

func TestKeyedLockSerializesSameKey(t *testing.T) {
	locks := NewKeyedLock()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locks.Lock("k")
			counter++
			locks.Unlock("k")
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
}

func TestKeyedLockIndependentKeys(t *testing.T) {
	locks := NewKeyedLock()

	locks.Lock("a")
	done := make(chan struct{})
	go func() {
		locks.Lock("b")
		locks.Unlock("b")
		close(done)
	}()

	<-done // must not deadlock while "a" is held
	locks.Unlock("a")
}
