package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicClock_StartsAtEpoch(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, Epoch.Add(time.Second), clock.Now())
	assert.Equal(t, int64(2), clock.Calls())
}

func TestDeterministicClock_CustomStep(t *testing.T) {
	start := time.Date(2030, time.March, 4, 5, 6, 7, 0, time.UTC)
	clock := NewDeterministicClockAt(start, time.Minute)
	clock.Now()
	clock.Now()
	assert.Equal(t, start.Add(2*time.Minute), clock.Now())
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock()
	clock.Now()
	clock.Now()
	clock.Reset()
	assert.Equal(t, int64(0), clock.Calls())
	assert.Equal(t, Epoch, clock.Now())
}

func TestDeterministicClock_ConcurrentCallsAreDistinct(t *testing.T) {
	clock := NewDeterministicClock()
	const goroutines = 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[time.Time]bool)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			now := clock.Now()
			mu.Lock()
			seen[now] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, goroutines)
	assert.Equal(t, int64(goroutines), clock.Calls())
}

func TestFixedIDs(t *testing.T) {
	ids := NewFixedIDs("a", "b")
	assert.Equal(t, "a", ids.Generate())
	assert.Equal(t, "b", ids.Generate())
	assert.Panics(t, func() { ids.Generate() })
}

func TestSequentialIDs(t *testing.T) {
	ids := NewSequentialIDs("run")
	assert.Equal(t, "run-0001", ids.Generate())
	assert.Equal(t, "run-0002", ids.Generate())
}
