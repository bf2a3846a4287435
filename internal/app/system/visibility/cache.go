package visibility

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Cache memoizes resolved Sets per membership for the lifetime of one
// sweep run. It is safe for concurrent use. Create a new Cache per run;
// entries are never invalidated.
type Cache struct {
	mu   sync.Mutex
	sets map[primitive.ObjectID]Sets
}

// NewCache returns an empty per-run cache.
func NewCache() *Cache {
	return &Cache{sets: make(map[primitive.ObjectID]Sets)}
}

// Get returns the cached Sets for membershipID, calling compute and
// storing its result on the first request.
func (c *Cache) Get(membershipID primitive.ObjectID, compute func() Sets) Sets {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sets[membershipID]; ok {
		return s
	}
	s := compute()
	c.sets[membershipID] = s
	return s
}

// Len returns the number of memberships resolved so far.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sets)
}
