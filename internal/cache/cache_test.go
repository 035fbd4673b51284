package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func TestGetWithinTTL(t *testing.T) {
	clock := newClock()
	c := New[string](time.Hour, 100, 20, WithClock(clock.Now))

	c.Put("AAPL:u1", "analysis")
	clock.Advance(59 * time.Minute)

	got, ok := c.Get("AAPL:u1")
	require.True(t, ok)
	assert.Equal(t, "analysis", got)
}

func TestGetAfterTTLRemovesEntry(t *testing.T) {
	clock := newClock()
	c := New[string](time.Hour, 100, 20, WithClock(clock.Now))

	c.Put("AAPL:u1", "analysis")
	clock.Advance(time.Hour)

	_, ok := c.Get("AAPL:u1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestPutBeyondCeilingEvictsOldestBatch(t *testing.T) {
	clock := newClock()
	c := New[int](time.Hour, 100, 20, WithClock(clock.Now))

	for i := 0; i < 100; i++ {
		c.Put(fmt.Sprintf("k%03d", i), i)
		clock.Advance(time.Second)
	}
	require.Equal(t, 100, c.Len())

	c.Put("k100", 100)
	assert.Equal(t, 81, c.Len())

	for i := 0; i < 20; i++ {
		_, ok := c.Get(fmt.Sprintf("k%03d", i))
		assert.False(t, ok, "k%03d should have been evicted", i)
	}
	for i := 20; i <= 100; i++ {
		_, ok := c.Get(fmt.Sprintf("k%03d", i))
		assert.True(t, ok, "k%03d should remain", i)
	}
}

func TestEvictionKeepsNewestEvenWithEqualTimestamps(t *testing.T) {
	clock := newClock()
	c := New[int](time.Hour, 3, 2, WithClock(clock.Now))

	for i := 0; i < 4; i++ {
		c.Put(fmt.Sprintf("k%d", i), i)
	}
	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("k3")
	assert.True(t, ok)
}

func TestOverwriteRefreshesTimestamp(t *testing.T) {
	clock := newClock()
	c := New[string](time.Hour, 100, 20, WithClock(clock.Now))

	c.Put("k", "v1")
	clock.Advance(50 * time.Minute)
	c.Put("k", "v2")
	clock.Advance(50 * time.Minute)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v2", got)
}

func TestConcurrentPutsStayBounded(t *testing.T) {
	c := New[int](time.Hour, 100, 20)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				c.Put(fmt.Sprintf("g%d-%d", g, i), i)
				c.Get(fmt.Sprintf("g%d-%d", g, i/2))
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 100)
}

func TestClearAndStats(t *testing.T) {
	c := New[int](time.Minute, 10, 2)
	c.Put("a", 1)
	assert.Equal(t, 1, c.Stats()["size"])
	c.Clear()
	assert.Equal(t, 0, c.Len())
}
