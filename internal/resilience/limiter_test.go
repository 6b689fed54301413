package resilience

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestLimiterBoundsConcurrency(t *testing.T) {
	const limit = 3
	const workers = 10
	l := NewLimiter(limit)

	var running, maxSeen atomic.Int32
	done := make(chan struct{}, workers)

	for range workers {
		go func() {
			defer func() { done <- struct{}{} }()
			err := l.Run(context.Background(), func() error {
				cur := running.Add(1)
				for {
					old := maxSeen.Load()
					if cur <= old || maxSeen.CompareAndSwap(old, cur) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				running.Add(-1)
				return nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	for range workers {
		<-done
	}

	if m := maxSeen.Load(); m > limit {
		t.Errorf("max concurrent = %d, want <= %d", m, limit)
	}
}

func TestLimiterHonoursCancellation(t *testing.T) {
	l := NewLimiter(1)

	occupied := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = l.Run(context.Background(), func() error {
			close(occupied)
			<-release
			return nil
		})
	}()
	<-occupied
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Run(ctx, func() error {
		t.Error("fn should not have been called")
		return nil
	})
	if err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestNilLimiterRunsDirectly(t *testing.T) {
	var l *Limiter
	called := false
	if err := l.Run(context.Background(), func() error { called = true; return nil }); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("expected fn to run")
	}
}
