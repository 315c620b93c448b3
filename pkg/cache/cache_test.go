package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_InsertAndRetrieve(t *testing.T) {
	cache := NewCache(3)

	_, found := cache.Retrieve("A")
	assert.False(t, found)

	require.NoError(t, cache.Insert("A", "valueA", 1))
	require.NoError(t, cache.Insert("B", "valueB", 2))
	assert.Equal(t, 3, cache.GetWeight())
	assert.Equal(t, 3, cache.GetBudget())
	assert.Equal(t, 2, cache.Len())

	value, found := cache.Retrieve("A")
	require.True(t, found)
	assert.Equal(t, "valueA", value)
}

func TestCache_Replace(t *testing.T) {
	cache := NewCache(3)

	require.NoError(t, cache.Insert("A", "first", 1))
	require.NoError(t, cache.Insert("A", "second", 2))

	value, found := cache.Retrieve("A")
	require.True(t, found)
	assert.Equal(t, "second", value)
	assert.Equal(t, 2, cache.GetWeight())
	assert.Equal(t, 1, cache.Len())

	// Absence markers are stored like any other value
	require.NoError(t, cache.Insert("A", nil, 1))
	value, found = cache.Retrieve("A")
	require.True(t, found)
	assert.Nil(t, value)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewCache(2)
	cache.SetVerbose(true)

	require.NoError(t, cache.Insert("evicted", "valueEvicted", 1))
	require.NoError(t, cache.Insert("A", "valueA", 1))
	require.NoError(t, cache.Insert("B", "valueB", 1))

	_, found := cache.Retrieve("evicted")
	assert.False(t, found)
	assert.Equal(t, 2, cache.GetWeight())

	// Touching A makes B the eviction candidate
	_, found = cache.Retrieve("A")
	require.True(t, found)
	require.NoError(t, cache.Insert("C", "valueC", 1))

	_, found = cache.Retrieve("B")
	assert.False(t, found)
	_, found = cache.Retrieve("A")
	assert.True(t, found)
	_, found = cache.Retrieve("C")
	assert.True(t, found)
}

func TestCache_InvalidWeights(t *testing.T) {
	cache := NewCache(2)

	assert.Equal(t, ErrWeightExceedsBudget, cache.Insert("A", "valueA", 3))
	assert.Error(t, cache.Insert("A", "valueA", -1))
	assert.Equal(t, 0, cache.Len())
}

func TestCache_DeleteAndClear(t *testing.T) {
	cache := NewCache(10)

	for i := 0; i < 5; i++ {
		require.NoError(t, cache.Insert(fmt.Sprintf("key%d", i), i, 1))
	}

	assert.True(t, cache.Delete("key2"))
	assert.False(t, cache.Delete("key2"))
	assert.Equal(t, 4, cache.GetWeight())

	// Head and tail removal keep the list consistent
	assert.True(t, cache.Delete("key0"))
	assert.True(t, cache.Delete("key4"))
	require.NoError(t, cache.Insert("key5", 5, 1))
	assert.Equal(t, 3, cache.Len())

	cache.Clear()
	assert.Equal(t, 0, cache.GetWeight())
	assert.Equal(t, 0, cache.Len())
	_, found := cache.Retrieve("key5")
	assert.False(t, found)
}

func TestCache_Concurrent(t *testing.T) {
	cache := NewCache(50)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			key := fmt.Sprintf("key%d", i%20)
			assert.NoError(t, cache.Insert(key, i, 1))
			cache.Retrieve(key)
			if i%7 == 0 {
				cache.Delete(key)
			}
		}(i)
	}
	wg.Wait()

	assert.True(t, cache.GetWeight() <= cache.GetBudget())
	assert.Equal(t, cache.Len(), cache.GetWeight())
}
