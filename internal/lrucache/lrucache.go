// Package lrucache implements a small fixed-size cache that evicts the oldest
// pushed entry. The viewer keeps recently rendered protocol trees in it.
package lrucache

type entry[K comparable, V any] struct {
	key K
	val V
}

// Cache holds at most Cap entries. Lookups scan from the newest entry back,
// so a key pushed twice resolves to its latest value.
type Cache[K comparable, V any] struct {
	ring []entry[K, V]
	last int // index of the newest entry
}

// New returns a cache holding up to size entries. It panics if size is not positive.
func New[K comparable, V any](size int) Cache[K, V] {
	if size <= 0 {
		panic("lrucache: size must be positive")
	}
	return Cache[K, V]{ring: make([]entry[K, V], 0, size)}
}

// Get returns the newest value stored under key.
func (c *Cache[K, V]) Get(key K) (val V, ok bool) {
	n := len(c.ring)
	for i := 0; i < n; i++ {
		e := &c.ring[(c.last-i+n)%n]
		if e.key == key {
			return e.val, true
		}
	}
	return val, false
}

// Push stores val under key, overwriting the oldest entry when full.
func (c *Cache[K, V]) Push(key K, val V) {
	if len(c.ring) < cap(c.ring) {
		c.ring = append(c.ring, entry[K, V]{key, val})
		c.last = len(c.ring) - 1
		return
	}
	c.last = (c.last + 1) % len(c.ring)
	c.ring[c.last] = entry[K, V]{key, val}
}

// Len returns the amount of entries held.
func (c *Cache[K, V]) Len() int { return len(c.ring) }

// Reset drops all entries keeping the allocated storage.
func (c *Cache[K, V]) Reset() {
	clear(c.ring)
	c.ring = c.ring[:0]
	c.last = 0
}
