package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSetAndGet(t *testing.T) {
	cache := New[string, int](1*time.Minute, 16)

	cache.Set("key1", 42)

	value, ok := cache.Get("key1")
	if !ok {
		t.Fatal("Get returned ok=false for existing key")
	}
	if value != 42 {
		t.Errorf("Get returned wrong value: got %d, want 42", value)
	}

	if _, ok := cache.Get("absent"); ok {
		t.Error("Get returned ok=true for missing key")
	}
}

func TestExpiry(t *testing.T) {
	cache := New[string, int](10*time.Millisecond, 16)
	cache.Set("key1", 1)

	time.Sleep(20 * time.Millisecond)
	if _, ok := cache.Get("key1"); ok {
		t.Error("Get returned ok=true after TTL elapsed")
	}
}

func TestSweepOnFull(t *testing.T) {
	cache := New[string, int](10*time.Millisecond, 4)
	for i := 0; i < 4; i++ {
		cache.Set(fmt.Sprintf("old%d", i), i)
	}
	time.Sleep(20 * time.Millisecond)

	cache.Set("new", 99)
	if got := cache.Len(); got != 1 {
		t.Errorf("Len = %d after sweep, want 1", got)
	}
	if v, ok := cache.Get("new"); !ok || v != 99 {
		t.Errorf("Get(new) = %d, %v, want 99, true", v, ok)
	}
}

func TestInvalidate(t *testing.T) {
	cache := New[string, int](1*time.Minute, 16)
	cache.Set("key1", 1)
	cache.Invalidate()

	if _, ok := cache.Get("key1"); ok {
		t.Error("Get returned ok=true after Invalidate")
	}
	if got := cache.Len(); got != 0 {
		t.Errorf("Len = %d after Invalidate, want 0", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	cache := New[int, int](1*time.Minute, 128)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Set(n*100+j, j)
				cache.Get(n*100 + j)
			}
		}(i)
	}
	wg.Wait()
}
