package catalog

import (
	"sync"

	"github.com/UjwalAKrishna/drawrag-core/pkg/registry"
)

// Cache provides thread-safe caching of decoded definition sets keyed
// by content digest. Cached slices are treated as immutable by all
// callers.
type Cache struct {
	mu    sync.RWMutex
	items map[string][]registry.Definition
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		items: make(map[string][]registry.Definition),
	}
}

// Get retrieves a definition set from the cache.
func (c *Cache) Get(key string) ([]registry.Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	defs, found := c.items[key]
	return defs, found
}

// Set stores a definition set in the cache.
func (c *Cache) Set(key string, defs []registry.Definition) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = defs
}

// Delete removes a definition set from the cache.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string][]registry.Definition)
}

// Size returns the number of cached definition sets.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}
