package cache

import (
	"container/list"
	"sync"
	"time"
)

// MemoryCache is the L1 cache: an entry-bounded LRU.
type MemoryCache struct {
	capacity int

	// LRU implementation
	items    map[string]*list.Element
	eviction *list.List
	size     int64

	mu    sync.Mutex
	stats Stats
}

type memoryEntry struct {
	key       string
	entry     Entry
	timestamp time.Time
}

// NewMemoryCache creates a memory cache holding at most capacity entries.
func NewMemoryCache(capacity int) *MemoryCache {
	return &MemoryCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		stats:    Stats{Capacity: int64(capacity)},
	}
}

// Get retrieves an entry and marks it most recently used.
func (c *MemoryCache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return Entry{}, false
	}

	c.eviction.MoveToFront(elem)
	c.stats.Hits++
	return elem.Value.(*memoryEntry).entry, true
}

// Put stores an entry, evicting the least recently used ones when full.
func (c *MemoryCache) Put(key string, entry Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capacity <= 0 {
		return ErrItemTooLarge
	}

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		me := elem.Value.(*memoryEntry)
		c.size += int64(len(entry.Data) - len(me.entry.Data))
		me.entry = entry
		me.timestamp = time.Now()
		return nil
	}

	for c.eviction.Len() >= c.capacity {
		c.evictOldest()
	}

	elem := c.eviction.PushFront(&memoryEntry{key: key, entry: entry, timestamp: time.Now()})
	c.items[key] = elem
	c.size += int64(len(entry.Data))
	return nil
}

// Delete removes an entry.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Clear removes all entries.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.eviction.Init()
	c.size = 0
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eviction.Len()
}

// Stats returns cache statistics.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = c.size
	stats.ItemCount = int64(len(c.items))
	stats.updateHitRate()
	return stats
}

// Prune removes entries older than maxAge.
func (c *MemoryCache) Prune(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	pruned := 0

	for elem := c.eviction.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*memoryEntry).timestamp.Before(cutoff) {
			c.removeElement(elem)
			pruned++
		}
		elem = prev
	}
	return pruned
}

// evictOldest removes the least recently used item (must be called with lock held).
func (c *MemoryCache) evictOldest() {
	if elem := c.eviction.Back(); elem != nil {
		c.removeElement(elem)
		c.stats.Evictions++
	}
}

// removeElement removes an element from the cache (must be called with lock held).
func (c *MemoryCache) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	me := elem.Value.(*memoryEntry)
	delete(c.items, me.key)
	c.size -= int64(len(me.entry.Data))
}
