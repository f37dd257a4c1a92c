package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_FIFOEviction(t *testing.T) {
	c := NewMemory(2)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", "1", 0))
	require.NoError(t, c.Set(ctx, "b", "2", 0))
	require.NoError(t, c.Set(ctx, "a", "1b", 0)) // update keeps position
	require.NoError(t, c.Set(ctx, "c", "3", 0))

	_, ok, _ := c.Get(ctx, "a")
	assert.False(t, ok, "oldest entry evicted")
	v, ok, _ := c.Get(ctx, "b")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
	assert.Equal(t, 2, c.Len())
}

func TestMemory_TTL(t *testing.T) {
	c := NewMemory(4)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", "x", time.Minute))
	require.NoError(t, c.Set(ctx, "forever", "y", 0))

	v, ok, _ := c.Get(ctx, "short")
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	now = now.Add(time.Minute)
	_, ok, _ = c.Get(ctx, "short")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	_, ok, _ = c.Get(ctx, "forever")
	assert.True(t, ok)
}

func TestMemory_Purge(t *testing.T) {
	c := NewMemory(4)
	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", "1", time.Second))
	require.NoError(t, c.Set(ctx, "b", "2", time.Hour))

	now = now.Add(2 * time.Second)
	n, err := c.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, c.Len())

	// freed slot is reusable without evicting b
	require.NoError(t, c.Set(ctx, "c", "3", 0))
	require.NoError(t, c.Set(ctx, "d", "4", 0))
	_, ok, _ := c.Get(ctx, "b")
	assert.True(t, ok)
}

func TestMemory_Concurrent(t *testing.T) {
	c := NewMemory(16)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				k := fmt.Sprintf("k%d", (i*100+j)%32)
				_ = c.Set(ctx, k, "v", time.Minute)
				_, _, _ = c.Get(ctx, k)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 16)
}

func TestNone(t *testing.T) {
	var c None
	require.NoError(t, c.Set(context.Background(), "k", "v", time.Hour))
	_, ok, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
