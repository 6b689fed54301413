package natskv_test

import (
	"context"
	"os"
	"testing"
	"time"

	hrnats "github.com/Strob0t/hookrelay/internal/adapter/nats"
	"github.com/Strob0t/hookrelay/internal/adapter/natskv"
	"github.com/Strob0t/hookrelay/internal/config"
	"github.com/Strob0t/hookrelay/internal/port/cache/cachetest"
)

func TestCompliance(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}

	cfg := config.Defaults().NATS
	cfg.URL = url
	q, err := hrnats.Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })

	kv, err := q.KeyValue(context.Background(), "HOOKRELAY_CACHE_TEST", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	cachetest.Run(t, natskv.New(kv))
}
