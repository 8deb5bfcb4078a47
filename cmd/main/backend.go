package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/CTAG07/texmml/pkg/cachestore"
)

// cacheBackend is the configured backend plus whatever must be released
// when the process is done with it.
type cacheBackend struct {
	cachestore.Backend
	name   string
	sqlite *cachestore.SQLite
	close  func() error
}

// openBackend builds the backend named in cfg.Backend.
func openBackend(cfg *CacheConfig, logger *slog.Logger) (*cacheBackend, error) {
	switch cfg.Backend {
	case backendMemory:
		m := cachestore.NewMemory(cfg.MemoryMaxEntries)
		m.SetLogger(logger)
		return &cacheBackend{Backend: m, name: backendMemory, close: func() error { return nil }}, nil

	case backendSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create cache directory: %w", err)
			}
		}
		db, err := initDB(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err = cachestore.SetupSchema(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to setup cache schema: %w", err)
		}
		s, err := cachestore.NewSQLite(db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to prepare cache statements: %w", err)
		}
		s.SetLogger(logger)
		return &cacheBackend{
			Backend: s,
			name:    backendSQLite,
			sqlite:  s,
			close: func() error {
				s.Close()
				return db.Close()
			},
		}, nil

	case backendMemcached:
		if len(cfg.MemcachedServers) == 0 {
			return nil, fmt.Errorf("memcached backend needs at least one server")
		}
		m := cachestore.NewMemcached(time.Duration(cfg.TimeoutMs)*time.Millisecond, cfg.MemcachedServers...)
		m.SetLogger(logger)
		return &cacheBackend{Backend: m, name: backendMemcached, close: func() error { return nil }}, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
}

// probe describes the backend and round-trips a throwaway key through it.
func (b *cacheBackend) probe(ctx context.Context, namespace string, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "[cache] backend=%s type=%T namespace=%s\n", b.name, b.Backend, namespace)

	if m, ok := b.Backend.(*cachestore.Memcached); ok {
		if err := m.Ping(); err != nil {
			_, _ = fmt.Fprintf(w, "[cache] ping failed: %v\n", err)
			return err
		}
	}

	key := namespace + ":probe:" + uuid.NewString()
	stored, err := b.Set(ctx, key, "ok", 30*time.Second)
	if err != nil {
		_, _ = fmt.Fprintf(w, "[cache] probe set failed: %v\n", err)
		return err
	}
	value, found, err := b.Get(ctx, key)
	if err != nil {
		_, _ = fmt.Fprintf(w, "[cache] probe get failed: %v\n", err)
		return err
	}
	_, _ = fmt.Fprintf(w, "[cache] probe set=%t get=%q found=%t\n", stored, value, found)
	if err = b.Purge(ctx, cachestore.KeyScope(key)); err != nil {
		return err
	}
	if !found || value != "ok" {
		return fmt.Errorf("probe value did not round-trip")
	}
	return nil
}
