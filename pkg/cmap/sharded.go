package cmap

import (
	"hash/maphash"
	"sync"
)

// ShardCount is the number of shards in every Map. It must be a power
// of two.
const ShardCount = 16

// Map is a concurrent-safe sharded map.
type Map[K comparable, V any] struct {
	shards [ShardCount]shard[K, V]
	seed   maphash.Seed
}

type shard[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

// New creates an empty map.
func New[K comparable, V any]() *Map[K, V] {
	m := &Map[K, V]{seed: maphash.MakeSeed()}
	for i := range m.shards {
		m.shards[i].items = make(map[K]V)
	}
	return m
}

func (m *Map[K, V]) getShard(key K) *shard[K, V] {
	return &m.shards[maphash.Comparable(m.seed, key)&(ShardCount-1)]
}

// Get returns the value stored for key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.getShard(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.items[key]
	return val, ok
}

// GetOrCreate returns the value for key, storing create() first when key
// is absent. create runs under the shard lock, at most once per key.
func (m *Map[K, V]) GetOrCreate(key K, create func() V) V {
	if val, ok := m.Get(key); ok {
		return val
	}

	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[key]; ok {
		return existing
	}
	val := create()
	s.items[key] = val
	return val
}

// Delete removes key.
func (m *Map[K, V]) Delete(key K) {
	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// Count returns the number of entries.
func (m *Map[K, V]) Count() int {
	count := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		count += len(s.items)
		s.mu.RUnlock()
	}
	return count
}
