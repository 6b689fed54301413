package tiered_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/hookrelay/internal/adapter/tiered"
	"github.com/Strob0t/hookrelay/internal/port/cache/cachetest"
)

var errL2Down = errors.New("l2 unavailable")

// memCache is a simple in-memory cache for testing. A non-nil err makes every
// call fail.
type memCache struct {
	data map[string][]byte
	err  error
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Get(_ context.Context, key string) (data []byte, ok bool, err error) {
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	if m.err != nil {
		return m.err
	}
	delete(m.data, key)
	return nil
}

func TestTiered_Compliance(t *testing.T) {
	cachetest.Run(t, tiered.New(newMemCache(), newMemCache(), time.Minute))
}

func TestTiered_ComplianceWithoutL2(t *testing.T) {
	cachetest.Run(t, tiered.New(newMemCache(), nil, time.Minute))
}

func TestTiered_L2FailureIsMiss(t *testing.T) {
	l2 := newMemCache()
	l2.err = errL2Down
	c := tiered.New(newMemCache(), l2, time.Minute)
	ctx := context.Background()

	_, found, err := c.Get(ctx, "prefs:x")
	if err != nil || found {
		t.Fatalf("expected clean miss, got found=%v err=%v", found, err)
	}
	if err := c.Set(ctx, "prefs:x", []byte("v"), time.Minute); err != nil {
		t.Fatalf("expected L2 set failure to be swallowed, got %v", err)
	}
	val, found, err := c.Get(ctx, "prefs:x")
	if err != nil || !found || string(val) != "v" {
		t.Fatalf("expected L1 hit, got %q found=%v err=%v", val, found, err)
	}
	if err := c.Delete(ctx, "prefs:x"); !errors.Is(err, errL2Down) {
		t.Fatalf("expected L2 delete failure to surface, got %v", err)
	}
}

func TestTiered_L1Hit(t *testing.T) {
	l1 := newMemCache()
	l2 := newMemCache()
	c := tiered.New(l1, l2, 5*time.Minute)
	ctx := context.Background()

	// Set only in L1
	l1.data["key1"] = []byte("val1")

	val, found, err := c.Get(ctx, "key1")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected L1 hit")
	}
	if string(val) != "val1" {
		t.Fatalf("expected val1, got %s", val)
	}
}

func TestTiered_L2HitWithBackfill(t *testing.T) {
	l1 := newMemCache()
	l2 := newMemCache()
	c := tiered.New(l1, l2, 5*time.Minute)
	ctx := context.Background()

	// Set only in L2
	l2.data["key2"] = []byte("val2")

	val, found, err := c.Get(ctx, "key2")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected L2 hit")
	}
	if string(val) != "val2" {
		t.Fatalf("expected val2, got %s", val)
	}

	// Verify backfill into L1
	l1Val, ok := l1.data["key2"]
	if !ok {
		t.Fatal("expected L1 backfill")
	}
	if string(l1Val) != "val2" {
		t.Fatalf("expected backfilled val2, got %s", l1Val)
	}
}

func TestTiered_Miss(t *testing.T) {
	l1 := newMemCache()
	l2 := newMemCache()
	c := tiered.New(l1, l2, 5*time.Minute)
	ctx := context.Background()

	_, found, err := c.Get(ctx, "missing")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("expected miss")
	}
}

func TestTiered_SetBoth(t *testing.T) {
	l1 := newMemCache()
	l2 := newMemCache()
	c := tiered.New(l1, l2, 5*time.Minute)
	ctx := context.Background()

	if err := c.Set(ctx, "key3", []byte("val3"), time.Minute); err != nil {
		t.Fatal(err)
	}

	if _, ok := l1.data["key3"]; !ok {
		t.Fatal("expected key3 in L1")
	}
	if _, ok := l2.data["key3"]; !ok {
		t.Fatal("expected key3 in L2")
	}
}

func TestTiered_DeleteBoth(t *testing.T) {
	l1 := newMemCache()
	l2 := newMemCache()
	c := tiered.New(l1, l2, 5*time.Minute)
	ctx := context.Background()

	l1.data["key4"] = []byte("val4")
	l2.data["key4"] = []byte("val4")

	if err := c.Delete(ctx, "key4"); err != nil {
		t.Fatal(err)
	}

	if _, ok := l1.data["key4"]; ok {
		t.Fatal("expected key4 deleted from L1")
	}
	if _, ok := l2.data["key4"]; ok {
		t.Fatal("expected key4 deleted from L2")
	}
}
