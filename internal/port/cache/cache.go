// Package cache is the byte-oriented store behind the mention lookups made
// on each relayed event. Values are opaque; callers own their encoding.
package cache

import (
	"context"
	"time"
)

// Cache holds encoded lookup results under string keys.
//
// Get reports a missing or expired key as (nil, false, nil); an error means
// the backend itself failed. Implementations may ignore ttl when expiry is
// configured elsewhere. Deleting an absent key is not an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
