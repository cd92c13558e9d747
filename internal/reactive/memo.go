package reactive

import "sync"

// Memo is a value derived from a Cell, cached per source version.
type Memo[S, T any] struct {
	source  *Cell[S]
	compute func(S) T

	mu       sync.Mutex
	valid    bool
	version  uint64
	value    T
	computes uint64
}

// NewMemo derives a lazily computed value from source.
func NewMemo[S, T any](source *Cell[S], compute func(S) T) *Memo[S, T] {
	return &Memo[S, T]{source: source, compute: compute}
}

// Get returns the derived value for the source's current version,
// recomputing only when that version has not been seen yet.
func (m *Memo[S, T]) Get() (T, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	input, version := m.source.Get()
	if m.valid && m.version == version {
		return m.value, version
	}
	m.value = m.compute(input)
	m.version = version
	m.valid = true
	m.computes++
	return m.value, version
}

// Computations returns how many times the value has been computed.
func (m *Memo[S, T]) Computations() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.computes
}
