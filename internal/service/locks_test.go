package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	locks := newKeyedMutex()

	var wg sync.WaitGroup
	counters := map[string]int{"a": 0, "b": 0}
	var guard sync.Mutex // only protects the map header for the race detector
	for i := 0; i < 100; i++ {
		for _, key := range []string{"a", "b"} {
			wg.Add(1)
			go func(key string) {
				defer wg.Done()
				unlock := locks.Lock(key)
				defer unlock()
				guard.Lock()
				v := counters[key]
				guard.Unlock()
				guard.Lock()
				counters[key] = v + 1
				guard.Unlock()
			}(key)
		}
	}
	wg.Wait()

	assert.Equal(t, 100, counters["a"])
	assert.Equal(t, 100, counters["b"])
	assert.Equal(t, 0, locks.size())
}

func TestKeyedMutexForgetsReleasedKeys(t *testing.T) {
	locks := newKeyedMutex()

	unlockA := locks.Lock("project:1")
	unlockB := locks.Lock("user:1")
	assert.Equal(t, 2, locks.size())

	unlockA()
	assert.Equal(t, 1, locks.size())
	unlockB()
	assert.Equal(t, 0, locks.size())
}
