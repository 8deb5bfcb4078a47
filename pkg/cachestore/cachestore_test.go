package cachestore

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestStore creates a temporary SQLite database and a backend on it.
// It uses t.Cleanup to ensure resources are released.
func setupTestStore(t *testing.T) *SQLite {
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=-4000")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}
	if err := SetupSchema(db); err != nil {
		t.Fatalf("SetupSchema is not idempotent: %v", err)
	}

	s, err := NewSQLite(db)
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

// backends returns one instance of every backend that can run locally.
// Memcached joins when MEMCACHED_ADDR names a reachable server.
func backends(t *testing.T) map[string]Backend {
	t.Helper()
	out := map[string]Backend{
		"memory": NewMemory(100),
		"sqlite": setupTestStore(t),
	}
	if addr := os.Getenv("MEMCACHED_ADDR"); addr != "" {
		m := NewMemcached(time.Second, addr)
		if err := m.Ping(); err != nil {
			t.Fatalf("MEMCACHED_ADDR=%s is not reachable: %v", addr, err)
		}
		out["memcached"] = m
	}
	return out
}

// uniqueNS keeps runs against a shared memcached from seeing each other.
func uniqueNS(t *testing.T) string {
	return "t" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + time.Now().Format("150405.000000000")
}

func TestBackendContract(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ns := uniqueNS(t)
			k1, k2 := ns+":tex:one", ns+":tex:two"
			other := ns + "x:tex:one"

			if _, ok, err := b.Get(ctx, k1); err != nil || ok {
				t.Fatalf("expected a miss on an empty cache, got ok=%v err=%v", ok, err)
			}
			for _, k := range []string{k1, k2, other} {
				stored, err := b.Set(ctx, k, "<mi>"+k+"</mi>", time.Minute)
				if err != nil || !stored {
					t.Fatalf("Set(%s) = %v, %v", k, stored, err)
				}
			}
			v, ok, err := b.Get(ctx, k1)
			if err != nil || !ok || v != "<mi>"+k1+"</mi>" {
				t.Fatalf("expected stored value, got %q ok=%v err=%v", v, ok, err)
			}

			if _, err = b.Set(ctx, k1, "<mn>2</mn>", time.Minute); err != nil {
				t.Fatalf("overwrite failed: %v", err)
			}
			if v, _, _ = b.Get(ctx, k1); v != "<mn>2</mn>" {
				t.Errorf("expected overwritten value, got %q", v)
			}

			if err = b.Purge(ctx, KeyScope(k1)); err != nil {
				t.Fatalf("key purge failed: %v", err)
			}
			if _, ok, _ = b.Get(ctx, k1); ok {
				t.Error("key is still visible after a key purge")
			}
			if _, ok, _ = b.Get(ctx, k2); !ok {
				t.Error("a key purge removed a sibling key")
			}

			if err = b.Purge(ctx, NamespaceScope(ns)); err != nil {
				t.Fatalf("namespace purge failed: %v", err)
			}
			if _, ok, _ = b.Get(ctx, k2); ok {
				t.Error("key is still visible after a namespace purge")
			}
			if _, ok, _ = b.Get(ctx, other); !ok {
				t.Error("a namespace purge removed a key of another namespace")
			}

			if _, err = b.Set(ctx, k2, "<mi>y</mi>", time.Minute); err != nil {
				t.Fatalf("Set after purge failed: %v", err)
			}
			if v, ok, _ = b.Get(ctx, k2); !ok || v != "<mi>y</mi>" {
				t.Errorf("expected a value stored after the purge to be visible, got %q ok=%v", v, ok)
			}

			if err = b.Purge(ctx, KeyScope(ns+":tex:never-stored")); err != nil {
				t.Errorf("purging an absent key should succeed, got %v", err)
			}
		})
	}
}

func TestBackendsConcurrentUse(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ns := uniqueNS(t)
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 20; j++ {
						key := ns + ":tex:shared"
						if _, err := b.Set(ctx, key, "<mi>x</mi>", time.Minute); err != nil {
							t.Errorf("concurrent Set failed: %v", err)
							return
						}
						if v, ok, err := b.Get(ctx, key); err != nil || (ok && v != "<mi>x</mi>") {
							t.Errorf("concurrent Get returned %q ok=%v err=%v", v, ok, err)
							return
						}
					}
				}()
			}
			wg.Wait()
		})
	}
}

func TestSQLiteExpiry(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if _, err := s.Set(ctx, "a:tex:1", "<mi>x</mi>", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := s.Set(ctx, "a:tex:2", "<mi>y</mi>", time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := s.Set(ctx, "b:tex:1", "<mi>z</mi>", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := s.Get(ctx, "a:tex:1"); ok {
		t.Error("expected an expired entry to be a miss")
	}
	if _, ok, _ := s.Get(ctx, "a:tex:2"); !ok {
		t.Error("expected a live entry to be a hit")
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.Entries != 3 || stats.Expired != 2 {
		t.Errorf("expected 3 entries with 2 expired, got %+v", stats)
	}
	if len(stats.Namespaces) != 2 || stats.Namespaces[0].Namespace != "a" || stats.Namespaces[0].Entries != 2 {
		t.Errorf("unexpected namespace stats: %+v", stats.Namespaces)
	}
	if stats.Namespaces[0].ValueBytes != int64(len("<mi>x</mi>")+len("<mi>y</mi>")) {
		t.Errorf("unexpected value bytes for namespace a: %d", stats.Namespaces[0].ValueBytes)
	}

	removed, err := s.PruneExpired(ctx)
	if err != nil {
		t.Fatalf("PruneExpired failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 expired entries removed, got %d", removed)
	}
	stats, err = s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.Entries != 1 || stats.Expired != 0 {
		t.Errorf("expected a single live entry after pruning, got %+v", stats)
	}
}

func TestSQLiteDefaultTTL(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Now()
	s.now = func() time.Time { return now }
	if _, err := s.Set(ctx, "a:tex:1", "<mi>x</mi>", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	now = now.Add(DefaultTTL - time.Second)
	if _, ok, _ := s.Get(ctx, "a:tex:1"); !ok {
		t.Error("expected a zero TTL to mean the default TTL")
	}
}

func TestSQLiteClosedDatabaseIsUnavailable(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "closed.db")
	db, err := sql.Open("sqlite3", dbFile)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err = SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}
	s, err := NewSQLite(db)
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	_ = db.Close()

	if _, _, err = s.Get(context.Background(), "a:tex:1"); !errors.Is(err, ErrCacheUnavailable) {
		t.Errorf("expected ErrCacheUnavailable from a closed database, got %v", err)
	}
	if _, err = s.Set(context.Background(), "a:tex:1", "v", time.Minute); !errors.Is(err, ErrCacheUnavailable) {
		t.Errorf("expected ErrCacheUnavailable from a closed database, got %v", err)
	}
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory(10)
	ctx := context.Background()
	if _, err := m.Set(ctx, "a:tex:1", "<mi>x</mi>", 20*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "a:tex:1"); !ok {
		t.Fatal("expected a fresh entry to be a hit")
	}
	time.Sleep(1200 * time.Millisecond)
	if _, ok, _ := m.Get(ctx, "a:tex:1"); ok {
		t.Error("expected the entry to have expired")
	}
}

func TestMemoryCancelledContext(t *testing.T) {
	m := NewMemory(10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := m.Get(ctx, "a:tex:1"); !errors.Is(err, ErrCacheUnavailable) {
		t.Errorf("expected ErrCacheUnavailable, got %v", err)
	}
	if !errors.Is(func() error { _, err := m.Set(ctx, "a:tex:1", "v", 0); return err }(), context.Canceled) {
		t.Error("expected the cause to stay inspectable")
	}
}

type blockingBackend struct{}

func (blockingBackend) Get(ctx context.Context, _ string) (string, bool, error) {
	<-ctx.Done()
	return "", false, ctx.Err()
}

func (blockingBackend) Set(ctx context.Context, _, _ string, _ time.Duration) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}

func (blockingBackend) Purge(ctx context.Context, _ Scope) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestWithTimeout(t *testing.T) {
	b := WithTimeout(blockingBackend{}, 10*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	if _, _, err := b.Get(ctx, "a:tex:1"); !errors.Is(err, ErrCacheUnavailable) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected a deadline wrapped as ErrCacheUnavailable, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout was not enforced, call took %v", elapsed)
	}
	if _, err := b.Set(ctx, "a:tex:1", "v", time.Minute); !errors.Is(err, ErrCacheUnavailable) {
		t.Errorf("expected ErrCacheUnavailable from Set, got %v", err)
	}
	if err := b.Purge(ctx, NamespaceScope("a")); !errors.Is(err, ErrCacheUnavailable) {
		t.Errorf("expected ErrCacheUnavailable from Purge, got %v", err)
	}

	m := NewMemory(1)
	if WithTimeout(m, 0) != Backend(m) {
		t.Error("expected a zero timeout to return the backend unchanged")
	}
}

func TestUnavailable(t *testing.T) {
	cause := errors.New("connection refused")
	err := Unavailable("get", cause)
	if !errors.Is(err, ErrCacheUnavailable) || !errors.Is(err, cause) {
		t.Errorf("expected both the sentinel and the cause to match, got %v", err)
	}
	if again := Unavailable("set", err); again != err {
		t.Errorf("expected an already wrapped error to be returned as is, got %v", again)
	}
}

func TestSplitKeyAndScope(t *testing.T) {
	tests := []struct {
		key, ns, rest string
	}{
		{"mathml:tex:abc", "mathml", "tex:abc"},
		{"plain", "", "plain"},
		{":tex:abc", "", "tex:abc"},
	}
	for _, tt := range tests {
		ns, rest := SplitKey(tt.key)
		if ns != tt.ns || rest != tt.rest {
			t.Errorf("SplitKey(%q) = %q, %q; expected %q, %q", tt.key, ns, rest, tt.ns, tt.rest)
		}
	}
	if s := NamespaceScope("mathml").String(); s != "namespace mathml" {
		t.Errorf("unexpected scope string %q", s)
	}
	if s := KeyScope("mathml:tex:abc").String(); s != "key mathml:tex:abc" {
		t.Errorf("unexpected scope string %q", s)
	}
}
