// Package csync provides concurrency-safe collections.
package csync

import (
	"iter"
	"maps"
	"sync"
)

// Map is a generic map protected by a read-write mutex.
type Map[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

// NewMap returns a new empty [Map].
func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{m: make(map[K]V)}
}

// Get returns the value stored under the given key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.m[key]
	return v, ok
}

// Set stores a value under the given key.
func (m *Map[K, V]) Set(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[key] = value
}

// Del removes the given key and reports whether it was present.
func (m *Map[K, V]) Del(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.m[key]
	delete(m.m, key)
	return ok
}

// Len returns the number of stored entries.
func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.m)
}

// Seq2 iterates over a snapshot of the map's entries.
func (m *Map[K, V]) Seq2() iter.Seq2[K, V] {
	m.mu.RLock()
	snapshot := maps.Clone(m.m)
	m.mu.RUnlock()
	return maps.All(snapshot)
}
