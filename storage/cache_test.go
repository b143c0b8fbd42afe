package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestCache(t *testing.T) {
	ctx := context.Background()
	dir := NewDataDir(t.TempDir())
	writeFile(t, dir.Root(), "orders.json", `[{"id": "o1"}]`)
	cache := NewCache(dir)

	first, err := cache.LoadRecords(ctx, "orders.json")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cache.ReadValue(ctx, "orders.json"); err != nil {
		t.Fatal(err)
	}
	if cache.Len() != 1 {
		t.Errorf("expected one cached document, got %d", cache.Len())
	}

	writeFile(t, dir.Root(), "orders.json", `[{"id": "o1"}, {"id": "o2"}]`)
	stale, _ := cache.LoadRecords(ctx, "orders.json")
	if len(stale) != len(first) {
		t.Errorf("cache should serve the stored records until evicted")
	}

	cache.Evict("orders.json")
	fresh, err := cache.LoadRecords(ctx, "orders.json")
	if err != nil {
		t.Fatal(err)
	}
	if len(fresh) != 2 {
		t.Errorf("expected 2 records after eviction, got %d", len(fresh))
	}

	cache.Purge()
	if cache.Len() != 0 {
		t.Errorf("purge should drop everything")
	}

	if _, err := cache.LoadRecords(ctx, "missing.json"); err == nil {
		t.Errorf("errors should not be cached as values")
	}
}

func TestCacheDropsReadsOverlappingEviction(t *testing.T) {
	ctx := context.Background()

	loads := map[string]func(*Cache) (int, error){
		"records": func(c *Cache) (int, error) {
			records, err := c.LoadRecords(ctx, "orders.json")
			return len(records), err
		},
		"value": func(c *Cache) (int, error) {
			value, err := c.ReadValue(ctx, "orders.json")
			if err != nil {
				return 0, err
			}
			return len(value.([]interface{})), nil
		},
	}
	tests := []struct {
		name      string
		interrupt func(*Cache)
		wantLen   int
		wantAfter int
	}{
		{"evict", func(c *Cache) { c.Evict("orders.json") }, 0, 2},
		{"purge", func(c *Cache) { c.Purge() }, 0, 2},
		{"evict other file", func(c *Cache) { c.Evict("products.json") }, 1, 1},
	}
	for loadName, load := range loads {
		for _, tt := range tests {
			t.Run(loadName+"/"+tt.name, func(t *testing.T) {
				dir := NewDataDir(t.TempDir())
				writeFile(t, dir.Root(), "orders.json", `[{"id": "o1"}]`)
				cache := NewCache(dir)

				fired := false
				cache.afterRead = func(string) {
					if fired {
						return
					}
					fired = true
					writeFile(t, dir.Root(), "orders.json", `[{"id": "o1"}, {"id": "o2"}]`)
					tt.interrupt(cache)
				}

				n, err := load(cache)
				if err != nil {
					t.Fatal(err)
				}
				if n != 1 {
					t.Errorf("in-flight read should return what it read, got %d items", n)
				}
				if cache.Len() != tt.wantLen {
					t.Errorf("expected %d cached documents, got %d", tt.wantLen, cache.Len())
				}

				n, err = load(cache)
				if err != nil {
					t.Fatal(err)
				}
				if n != tt.wantAfter {
					t.Errorf("expected %d items on the next read, got %d", tt.wantAfter, n)
				}
			})
		}
	}
}

func TestWatcherEvictsChangedFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	dir := NewDataDir(t.TempDir())
	if err := dir.WriteJSON(ctx, "products.json", []map[string]interface{}{{"id": "p1"}}); err != nil {
		t.Fatal(err)
	}
	cache := NewCache(dir)
	if _, err := cache.LoadRecords(ctx, "products.json"); err != nil {
		t.Fatal(err)
	}

	watcher := NewWatcher(dir.Root(), cache, slog.New(slog.NewTextHandler(io.Discard, nil)))
	watcher.SetDebounce(20 * time.Millisecond)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- watcher.Run(runCtx) }()

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)

	if err := dir.WriteJSON(ctx, "products.json", []map[string]interface{}{{"id": "p1"}, {"id": "p2"}}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		records, err := cache.LoadRecords(ctx, "products.json")
		if err != nil {
			t.Fatal(err)
		}
		if len(records) == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("cache was not evicted after the file changed")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop after cancellation")
	}
}

func TestWatcherMissingDirectory(t *testing.T) {
	defer goleak.VerifyNone(t)

	watcher := NewWatcher(t.TempDir()+"/absent", NewCache(NewDataDir(t.TempDir())), nil)
	if err := watcher.Run(context.Background()); err == nil {
		t.Errorf("expected an error for a missing directory")
	}
}
