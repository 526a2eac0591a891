package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_TryLock(t *testing.T) {
	k := newKeyedMutex()

	unlock, ok := k.TryLock("@one")
	require.True(t, ok)

	_, ok = k.TryLock("@one")
	assert.False(t, ok, "same key must be exclusive")

	unlockOther, ok := k.TryLock("@two")
	require.True(t, ok, "other keys must not block")
	unlockOther()

	unlock()
	unlock, ok = k.TryLock("@one")
	require.True(t, ok)
	unlock()

	assert.Zero(t, k.size(), "released entries are dropped")
}

func TestKeyedMutex_LockSerializes(t *testing.T) {
	k := newKeyedMutex()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("@same")
			defer unlock()

			mu.Lock()
			active++
			maxSeen = max(maxSeen, active)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Zero(t, k.size())
}
