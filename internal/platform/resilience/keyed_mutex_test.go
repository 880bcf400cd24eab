package resilience

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	var km KeyedMutex
	var mu sync.Mutex
	active := 0
	maxActive := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := km.Lock(context.Background(), "league-1")
			if err != nil {
				t.Errorf("lock failed: %v", err)
				return
			}
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Fatalf("expected at most one holder, observed %d", maxActive)
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	var km KeyedMutex

	unlockA, err := km.Lock(context.Background(), "league-a")
	if err != nil {
		t.Fatalf("lock league-a: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := km.Lock(ctx, "league-b")
	if err != nil {
		t.Fatalf("expected independent key to lock immediately, got %v", err)
	}
	unlockB()
}

func TestKeyedMutexHonorsContext(t *testing.T) {
	var km KeyedMutex

	unlock, err := km.Lock(context.Background(), "league-1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := km.Lock(ctx, "league-1"); err == nil {
		t.Fatal("expected context deadline error")
	}

	unlock()

	// The key must be usable again after the failed waiter gave up.
	unlock2, err := km.Lock(context.Background(), "league-1")
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	unlock2()
}
