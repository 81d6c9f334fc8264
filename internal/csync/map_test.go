package csync

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapBasicOperations(t *testing.T) {
	t.Parallel()

	m := NewMap[string, int]()
	require.Zero(t, m.Len())

	m.Set("a", 1)
	m.Set("b", 2)
	require.Equal(t, 2, m.Len())

	v, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	_, ok = m.Get("c")
	require.False(t, ok)

	require.True(t, m.Del("a"))
	require.False(t, m.Del("a"))
	require.Equal(t, 1, m.Len())
}

func TestMapSeq2Snapshot(t *testing.T) {
	t.Parallel()

	m := NewMap[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)

	seen := map[string]int{}
	for k, v := range m.Seq2() {
		seen[k] = v
		// Mutating while iterating must not affect the snapshot.
		m.Set("c", 3)
	}
	require.Equal(t, map[string]int{"a": 1, "b": 2}, seen)
}

func TestMapConcurrentAccess(t *testing.T) {
	t.Parallel()

	m := NewMap[int, int]()
	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Set(i, i)
			m.Get(i)
		}()
	}
	wg.Wait()
	require.Equal(t, 100, m.Len())
}
