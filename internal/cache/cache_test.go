package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSet(t *testing.T) {
	c := New[string]()

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("price:XAUUSD", "2350.00", time.Minute)
	got, ok := c.Get("price:XAUUSD")
	require.True(t, ok)
	assert.Equal(t, "2350.00", got)
}

func TestExpiry(t *testing.T) {
	c := New[int]()
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("k", 42, 5*time.Second)

	// Two seconds in, still fresh.
	now = now.Add(2 * time.Second)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 42, got)

	// Past the TTL the entry is gone and removed from the map.
	now = now.Add(4 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestSetReplacesEntry(t *testing.T) {
	c := New[int]()
	c.Set("k", 1, time.Minute)
	c.Set("k", 2, time.Minute)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int]()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", n%4)
			for j := 0; j < 200; j++ {
				c.Set(key, j, time.Millisecond)
				c.Get(key)
				c.Delete(key)
			}
		}(i)
	}
	wg.Wait()
}
