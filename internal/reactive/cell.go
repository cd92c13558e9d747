package reactive

import "sync"

type subscriber[T any] struct {
	id uint64
	fn func(T, uint64)
}

// Cell is a versioned value with synchronous change notification.
type Cell[T any] struct {
	mu      sync.Mutex
	value   T
	version uint64
	nextID  uint64
	subs    []subscriber[T]
}

// NewCell returns a cell holding initial at version 0.
func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{value: initial}
}

// Get returns the current value and its version.
func (c *Cell[T]) Get() (T, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.version
}

// Version returns the current version.
func (c *Cell[T]) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Set stores v, bumps the version and notifies subscribers. It returns the
// new version.
func (c *Cell[T]) Set(v T) uint64 {
	return c.Update(func(T) T { return v })
}

// Update replaces the value with fn(current) and notifies subscribers. fn
// runs without the lock held and may read the cell; if another write lands
// while fn runs, fn is retried against the newer value.
func (c *Cell[T]) Update(fn func(T) T) uint64 {
	current, seen := c.Get()
	for {
		next := fn(current)
		c.mu.Lock()
		if c.version != seen {
			current, seen = c.value, c.version
			c.mu.Unlock()
			continue
		}
		c.value = next
		c.version++
		break
	}
	value, version := c.value, c.version
	subs := make([]subscriber[T], len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, s := range subs {
		s.fn(value, version)
	}
	return version
}

// Subscribe registers fn for every later change. The returned function
// removes the subscription and is safe to call more than once.
func (c *Cell[T]) Subscribe(fn func(T, uint64)) (unsubscribe func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscriber[T]{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (c *Cell[T]) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}
