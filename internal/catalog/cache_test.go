package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := NewCache(filepath.Join(t.TempDir(), "catalog.db"), ttl)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_RoundTrip(t *testing.T) {
	cache := newTestCache(t, 0)
	ctx := context.Background()

	if _, ok := cache.Get(ctx, "Sapiens"); ok {
		t.Fatalf("expected miss on empty cache")
	}
	v := volumeInfo{Title: "Sapiens", Authors: []string{"Yuval Noah Harari"}}
	if err := cache.Put(ctx, "Sapiens", v); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok := cache.Get(ctx, "  sapiens ") // key is normalized
	if !ok {
		t.Fatalf("expected hit")
	}
	if got.Title != "Sapiens" || len(got.Authors) != 1 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	cache := newTestCache(t, time.Nanosecond)
	ctx := context.Background()
	if err := cache.Put(ctx, "Old", volumeInfo{Title: "Old"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, ok := cache.Get(ctx, "Old"); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestLookup_ReadsThroughCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"totalItems":1,"items":[{"id":"v1","volumeInfo":{"title":"Cached"}}]}`))
	}))
	defer srv.Close()

	client := testClient(srv).WithCache(newTestCache(t, 0))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rec, err := client.Lookup(ctx, "Cached")
		if err != nil {
			t.Fatalf("lookup %d: %v", i, err)
		}
		if rec.Title != "Cached" {
			t.Fatalf("unexpected record: %+v", rec)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", got)
	}
}
