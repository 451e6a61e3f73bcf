package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := New()

	const goroutines = 50
	const iterations = 20

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				km.Lock("key")
				counter++
				km.Unlock("key")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines*iterations, counter, "expected all increments to be serialized")
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	km := New()

	km.Lock("a")

	done := make(chan struct{})
	go func() {
		km.Lock("b")
		km.Unlock("b")
		close(done)
	}()

	// A lock on "b" must not block behind the held lock on "a".
	<-done
	km.Unlock("a")
}

func TestKeyedMutex_DiscardsIdleEntries(t *testing.T) {
	km := New()

	km.Lock("key")
	km.Unlock("key")

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.entries, "expected released entries to be discarded")
}

func TestKeyedMutex_UnlockUnheldPanics(t *testing.T) {
	km := New()

	assert.Panics(t, func() { km.Unlock("never-locked") })
}
