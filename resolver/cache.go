package resolver

import (
	"sync"

	"github.com/fanjindong/go-cache"
)

// Cache maps raw addresses to their resolution outcome for the life of the
// process. Entries are stored without expiry and are only ever added.
type Cache struct {
	mu      sync.Mutex
	entries cache.ICache
	size    int
}

// NewCache returns an empty resolution cache.
func NewCache() *Cache {
	return &Cache{
		entries: cache.NewMemCache(),
	}
}

// Get returns the stored result for address.
func (c *Cache) Get(address string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.entries.Get(address)
	if !ok {
		return Result{}, false
	}
	return v.(Result), true
}

// Add stores r under address unless an entry already exists, and returns
// the entry that is in the cache afterwards.
func (c *Cache) Add(address string, r Result) Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.entries.Get(address); ok {
		return v.(Result)
	}
	c.entries.Set(address, r)
	c.size++
	return r
}

// Len returns the number of cached addresses.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}
