// Package natskv shares mention lookups between relay instances through a
// JetStream key-value bucket. Entry lifetime is the bucket's TTL.
package natskv

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Cache stores entries in one KV bucket.
type Cache struct {
	kv jetstream.KeyValue
}

func New(kv jetstream.KeyValue) *Cache {
	return &Cache{kv: kv}
}

// bucketKey makes key safe for the KV key alphabet, which excludes ':' and
// many characters allowed in GitHub usernames.
func bucketKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := c.kv.Get(ctx, bucketKey(key))
	switch {
	case errors.Is(err, jetstream.ErrKeyNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("kv get: %w", err)
	}
	return entry.Value(), true, nil
}

// Set ignores ttl; the bucket expires entries.
func (c *Cache) Set(ctx context.Context, key string, value []byte, _ time.Duration) error {
	if _, err := c.kv.Put(ctx, bucketKey(key), value); err != nil {
		return fmt.Errorf("kv put: %w", err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, bucketKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("kv delete: %w", err)
	}
	return nil
}
