// Package ristretto keeps recently resolved mention lookups in process
// memory, in front of the shared NATS bucket.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// avgEntryBytes is the typical size of an encoded preference set or
// identity; it sizes the admission counters.
const avgEntryBytes = 100

// Cache is a size-bounded in-process cache. Each entry costs the length of
// its key plus its value.
type Cache struct {
	c *ristretto.Cache[string, []byte]
}

// New returns a cache that holds at most budget bytes of keys and values.
func New(budget int64) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: max(10*budget/avgEntryBytes, 1000),
		MaxCost:     budget,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, found := c.c.Get(key)
	return val, found, nil
}

// Set blocks until the write is applied, so an invalidate followed by a
// refill is never overtaken by the buffered delete. An entry the admission
// policy turns away simply shows up as a later miss.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.c.SetWithTTL(key, value, int64(len(key)+len(value)), ttl)
	c.c.Wait()
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	c.c.Close()
}
