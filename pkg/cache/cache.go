package cache

import (
	"fmt"
	"sync"
)

// State records how far an object got in the current run.
type State int

func (s State) String() string {
	switch s {
	case StateMigrating:
		return "migrating"
	case StateMigrated:
		return "migrated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Currently supported states
const (
	StateMigrating State = iota + 1
	StateMigrated
	StateFailed
)

// Key identifies an upstream object.
type Key struct {
	Kind string
	ID   int64
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Kind, k.ID)
}

// Cache tracks the objects migrated during one run so that each is
// migrated at most once, even when objects reference each other. It is safe
// to use from multiple goroutines.
type Cache struct {
	sync.Mutex

	states map[Key]State
	// done keeps the migrated keys in completion order
	done []Key
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{states: make(map[Key]State)}
}

// Begin marks an object as being migrated. It returns false if the object
// was already begun in this run, whatever its outcome.
func (c *Cache) Begin(key Key) bool {
	c.Lock()
	defer c.Unlock()
	if _, ok := c.states[key]; ok {
		return false
	}
	c.states[key] = StateMigrating
	return true
}

// Done marks an object as migrated.
func (c *Cache) Done(key Key) {
	c.Lock()
	defer c.Unlock()
	if c.states[key] == StateMigrated {
		return
	}
	c.states[key] = StateMigrated
	c.done = append(c.done, key)
}

// Fail marks an object as failed. A failed object is not retried.
func (c *Cache) Fail(key Key) {
	c.Lock()
	defer c.Unlock()
	c.states[key] = StateFailed
}

// Get returns the state of an object.
func (c *Cache) Get(key Key) (State, bool) {
	c.Lock()
	defer c.Unlock()
	s, ok := c.states[key]
	return s, ok
}

// Migrated returns the migrated objects in the order they completed.
func (c *Cache) Migrated() []Key {
	c.Lock()
	defer c.Unlock()
	out := make([]Key, len(c.done))
	copy(out, c.done)
	return out
}
