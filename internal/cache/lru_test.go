package cache

import (
	"testing"
	"time"
)

func TestLRUGetSet(t *testing.T) {
	c := NewLRU[int](2, time.Minute)
	if _, ok := c.Get("missing"); ok {
		t.Fatalf("expected miss")
	}
	c.Set("a", 1)
	c.Set("b", 2)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("got %v %v", v, ok)
	}
	// "b" is now the least recently used; adding "c" evicts it
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b evicted")
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Fatalf("got %v %v", v, ok)
	}
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRU[string](10, 10*time.Millisecond)
	c.Set("k", "v")
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestLRUPruneExpired(t *testing.T) {
	c := NewLRU[string](10, 10*time.Millisecond)
	c.Set("a", "1")
	c.Set("b", "2")
	time.Sleep(20 * time.Millisecond)
	c.Set("c", "3")
	if n := c.PruneExpired(); n != 2 {
		t.Fatalf("pruned %d, want 2", n)
	}
	if c.Len() != 1 {
		t.Fatalf("len %d, want 1", c.Len())
	}
}

func TestLRUDelete(t *testing.T) {
	c := NewLRU[int](10, time.Minute)
	c.Set("a", 1)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected deleted entry to miss")
	}
}
