package catalog

import (
	"sync"

	"github.com/potamap/potamap/pkg/core"
)

// Catalog maps park references to their reference records.
type Catalog struct {
	mu     sync.RWMutex
	parks  map[string]core.Park
	loaded bool
}

// New creates an empty Catalog
func New() *Catalog {
	return &Catalog{
		parks: make(map[string]core.Park),
	}
}

// Load replaces the catalog wholesale. Later entries with the same
// reference overwrite earlier ones; entries without a reference are dropped.
// Returns the number of parks held afterwards.
func (c *Catalog) Load(parks []core.Park) int {
	next := make(map[string]core.Park, len(parks))
	for _, p := range parks {
		if p.Reference == "" {
			continue
		}
		next[p.Reference] = p
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.parks = next
	c.loaded = true
	return len(next)
}

// Get retrieves a park by reference
func (c *Catalog) Get(reference string) (core.Park, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.parks[reference]
	return p, ok
}

// Len returns the number of parks in the catalog
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.parks)
}

// Loaded reports whether Load has completed at least once.
func (c *Catalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}
