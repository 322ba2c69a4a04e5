package watch

import "sync"

// CounterStore tracks how many logical watch requests share one underlying
// remote subscription. The registry is the only mutator; a count of zero
// means no active remote subscription exists for that key.
type CounterStore interface {
	// Count returns the current reference count for key, zero if absent.
	Count(key Key) int
	// Increment bumps the count, creating the entry at 1, and returns it.
	Increment(key Key) int
	// Decrement lowers the count, never below zero, and returns it.
	Decrement(key Key) int
	// Remove deletes the entry entirely.
	Remove(key Key)
}

// MemCounters is the in-memory CounterStore. One instance is owned per
// registry rather than held as ambient process state, so tests can substitute
// an isolated table.
type MemCounters struct {
	mu     sync.Mutex
	counts map[Key]int
}

// NewMemCounters creates an empty counter table.
func NewMemCounters() *MemCounters {
	return &MemCounters{counts: make(map[Key]int)}
}

// Count returns the current reference count for key.
func (m *MemCounters) Count(key Key) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

// Increment bumps the count, creating the entry at 1.
func (m *MemCounters) Increment(key Key) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key]
}

// Decrement lowers the count. A count already at zero stays at zero.
func (m *MemCounters) Decrement(key Key) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts[key] > 0 {
		m.counts[key]--
	}
	return m.counts[key]
}

// Remove deletes the entry.
func (m *MemCounters) Remove(key Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counts, key)
}

// Len returns the number of live entries. Used by tests and diagnostics.
func (m *MemCounters) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.counts)
}
