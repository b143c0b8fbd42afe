package storage

import (
	"context"
	"sync"

	"github.com/arthur-debert/shopdata/types"
)

// Cache memoizes decoded documents of a DataDir. Cached values are shared
// between callers and must not be modified. Entries live until evicted,
// usually by a Watcher.
//
// A read that overlaps an Evict or Purge of its name still returns what it
// read but does not cache it.
type Cache struct {
	dir *DataDir

	mu      sync.RWMutex
	records map[string][]types.Record
	values  map[string]interface{}
	gens    map[string]uint64
	epoch   uint64

	// afterRead runs between a directory read and the store; tests only.
	afterRead func(name string)
}

// generation identifies the cache state of one name.
type generation struct {
	epoch, gen uint64
}

// NewCache wraps dir.
func NewCache(dir *DataDir) *Cache {
	return &Cache{
		dir:     dir,
		records: make(map[string][]types.Record),
		values:  make(map[string]interface{}),
		gens:    make(map[string]uint64),
	}
}

// current must be called with mu held.
func (c *Cache) current(name string) generation {
	return generation{epoch: c.epoch, gen: c.gens[name]}
}

// List is never cached; it reflects the directory as it is.
func (c *Cache) List(ctx context.Context) ([]FileInfo, error) {
	return c.dir.List(ctx)
}

// ReadRaw is never cached.
func (c *Cache) ReadRaw(ctx context.Context, name string) ([]byte, error) {
	return c.dir.ReadRaw(ctx, name)
}

// ReadValue returns the cached document or reads it.
func (c *Cache) ReadValue(ctx context.Context, name string) (interface{}, error) {
	c.mu.RLock()
	value, ok := c.values[name]
	seen := c.current(name)
	c.mu.RUnlock()
	if ok {
		return value, nil
	}

	value, err := c.dir.ReadValue(ctx, name)
	if err != nil {
		return nil, err
	}
	c.readDone(name)
	c.mu.Lock()
	if c.current(name) == seen {
		c.values[name] = value
	}
	c.mu.Unlock()
	return value, nil
}

// LoadRecords returns the cached records or loads them.
func (c *Cache) LoadRecords(ctx context.Context, name string) ([]types.Record, error) {
	c.mu.RLock()
	records, ok := c.records[name]
	seen := c.current(name)
	c.mu.RUnlock()
	if ok {
		return records, nil
	}

	records, err := c.dir.LoadRecords(ctx, name)
	if err != nil {
		return nil, err
	}
	c.readDone(name)
	c.mu.Lock()
	if c.current(name) == seen {
		c.records[name] = records
	}
	c.mu.Unlock()
	return records, nil
}

func (c *Cache) readDone(name string) {
	if c.afterRead != nil {
		c.afterRead(name)
	}
}

// Evict drops everything cached for name.
func (c *Cache) Evict(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, name)
	delete(c.values, name)
	c.gens[name]++
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = make(map[string][]types.Record)
	c.values = make(map[string]interface{})
	c.gens = make(map[string]uint64)
	c.epoch++
}

// Len reports how many documents have a cached entry.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make(map[string]struct{}, len(c.records)+len(c.values))
	for name := range c.records {
		names[name] = struct{}{}
	}
	for name := range c.values {
		names[name] = struct{}{}
	}
	return len(names)
}
