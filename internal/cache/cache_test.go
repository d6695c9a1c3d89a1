package cache_test

import (
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zephyrtronium/formula/internal/cache"
)

func TestNew(t *testing.T) {
	c := cache.New[int](10)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 10, c.Capacity())
	assert.Equal(t, 256, cache.New[int](0).Capacity())
	assert.Equal(t, 256, cache.New[int](-3).Capacity())
}

func TestSetGet(t *testing.T) {
	c := cache.New[string](4)
	_, ok := c.Get("x")
	assert.False(t, ok)
	c.Set("x", "one")
	v, ok := c.Get("x")
	require.True(t, ok)
	assert.Equal(t, "one", v)
	c.Set("x", "two")
	v, ok = c.Get("x")
	require.True(t, ok)
	assert.Equal(t, "two", v)
	assert.Equal(t, 1, c.Len())
}

func TestEviction(t *testing.T) {
	c := cache.New[int](3)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	// Touch a so that b is the least recently used.
	_, ok := c.Get("a")
	require.True(t, ok)
	c.Set("d", 4)
	assert.Equal(t, 3, c.Len())
	_, ok = c.Get("b")
	assert.False(t, ok, "b should be evicted")
	for _, k := range []string{"a", "c", "d"} {
		_, ok := c.Get(k)
		assert.True(t, ok, "%s should survive", k)
	}
}

func TestInvalidateClear(t *testing.T) {
	c := cache.New[int](4)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Invalidate("a")
	c.Invalidate("nothing")
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
	c.Clear()
	assert.Equal(t, 0, c.Len())
	c.Set("c", 3)
	assert.Equal(t, 1, c.Len())
}

func TestGetOrCompile(t *testing.T) {
	c := cache.New[int](4)
	calls := 0
	compile := func() (int, error) {
		calls++
		return 7, nil
	}
	v, err := c.GetOrCompile("k", compile)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	v, err = c.GetOrCompile("k", compile)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 1, calls)

	bad := errors.New("bad")
	_, err = c.GetOrCompile("e", func() (int, error) { return 0, bad })
	assert.ErrorIs(t, err, bad)
	_, ok := c.Get("e")
	assert.False(t, ok, "errors must not be cached")
}

func TestConcurrent(t *testing.T) {
	c := cache.New[int](16)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				k := strconv.Itoa((i + j) % 32)
				c.Set(k, j)
				c.Get(k)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 16)
}
