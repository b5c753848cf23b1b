package internal

import (
	"sync"
	"testing"
)

func TestKeyMutexSerializesSameKey(t *testing.T) {
	km := NewKeyMutex()

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("principal-1")
			counter++
			km.Unlock("principal-1")
		}()
	}
	wg.Wait()

	if counter != 64 {
		t.Fatalf("expected 64 increments, got %d", counter)
	}
}

func TestKeyMutexReleasesEntries(t *testing.T) {
	km := NewKeyMutex()

	km.Lock("a")
	km.Unlock("a")
	km.Lock("b")
	km.Unlock("b")

	km.mu.Lock()
	defer km.mu.Unlock()
	if len(km.locks) != 0 {
		t.Fatalf("expected empty lock table, got %d entries", len(km.locks))
	}
}

func TestKeyMutexIndependentKeys(t *testing.T) {
	km := NewKeyMutex()

	km.Lock("a")
	done := make(chan struct{})
	go func() {
		km.Lock("b")
		km.Unlock("b")
		close(done)
	}()
	<-done
	km.Unlock("a")
}
