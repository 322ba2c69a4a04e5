package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWallClock_AdvancesByStep(t *testing.T) {
	epoch := time.UnixMilli(1700000000000)
	clock := NewWallClock(epoch, time.Millisecond)

	assert.Equal(t, epoch, clock.Peek())
	assert.Equal(t, epoch.Add(time.Millisecond), clock.Now())
	assert.Equal(t, epoch.Add(2*time.Millisecond), clock.Now())
	assert.Equal(t, epoch.Add(2*time.Millisecond), clock.Peek())
}

func TestWallClock_ZeroStepDefaultsToMillisecond(t *testing.T) {
	epoch := time.UnixMilli(0)
	clock := NewWallClock(epoch, 0)

	assert.Equal(t, int64(1), clock.Now().UnixMilli())
	assert.Equal(t, int64(2), clock.Now().UnixMilli())
}

func TestWallClock_Reset(t *testing.T) {
	epoch := time.UnixMilli(1700000000000)
	clock := NewWallClock(epoch, time.Second)

	clock.Now()
	clock.Now()
	clock.Reset()

	assert.Equal(t, epoch, clock.Peek())
	assert.Equal(t, epoch.Add(time.Second), clock.Now())
}

func TestWallClock_ThreadSafe(t *testing.T) {
	clock := NewWallClock(time.UnixMilli(0), time.Millisecond)
	const numGoroutines = 100
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make([][]time.Time, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		results[i] = make([]time.Time, callsPerGoroutine)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				results[idx][j] = clock.Now()
			}
		}(i)
	}

	wg.Wait()

	seen := make(map[int64]bool)
	for i := 0; i < numGoroutines; i++ {
		for j := 0; j < callsPerGoroutine; j++ {
			ms := results[i][j].UnixMilli()
			require.False(t, seen[ms], "duplicate tick %d", ms)
			seen[ms] = true
		}
	}

	expectedTotal := numGoroutines * callsPerGoroutine
	assert.Len(t, seen, expectedTotal)
	for i := int64(1); i <= int64(expectedTotal); i++ {
		assert.True(t, seen[i], "missing tick %d", i)
	}
}

func TestWallClock_Deterministic(t *testing.T) {
	epoch := time.UnixMilli(42)
	clock1 := NewWallClock(epoch, time.Millisecond)
	clock2 := NewWallClock(epoch, time.Millisecond)

	for i := 0; i < 100; i++ {
		assert.Equal(t, clock1.Now(), clock2.Now())
	}
}

func TestFixedSessionID(t *testing.T) {
	g := NewFixedSessionID("session-1")
	assert.Equal(t, "session-1", g.Generate())
	assert.Equal(t, "session-1", g.Generate())

	assert.Equal(t, "test-session-default", NewFixedSessionID("").Generate())
}
