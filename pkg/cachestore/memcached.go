package cachestore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// memcached treats expirations above 30 days as absolute unix times.
const maxMemcachedTTL = 30 * 24 * time.Hour

// Memcached is a Backend on a memcached cluster. Memcached cannot enumerate
// keys, so each namespace carries a generation counter that is folded into
// every stored key; purging a namespace bumps the counter and orphans the
// old entries until they expire.
type Memcached struct {
	client *memcache.Client
	logger *slog.Logger
}

// NewMemcached connects to the given servers with the given per-call
// timeout. A non-positive timeout keeps the client default.
func NewMemcached(timeout time.Duration, servers ...string) *Memcached {
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	return NewMemcachedClient(client)
}

// NewMemcachedClient wraps an existing client.
func NewMemcachedClient(client *memcache.Client) *Memcached {
	return &Memcached{
		client: client,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the backend. By default, all logs are discarded.
func (m *Memcached) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// Ping checks that every server answers.
func (m *Memcached) Ping() error {
	if err := m.client.Ping(); err != nil {
		return Unavailable("ping", err)
	}
	return nil
}

func generationKey(ns string) string {
	return ns + ":generation"
}

// generation returns the current counter of ns, seeding it on first use.
// The seed is time based so that an evicted counter does not revive entries
// of an earlier generation.
func (m *Memcached) generation(ns string) (string, error) {
	key := generationKey(ns)
	for range 2 {
		it, err := m.client.Get(key)
		if err == nil {
			return string(it.Value), nil
		}
		if !errors.Is(err, memcache.ErrCacheMiss) {
			return "", err
		}
		seed := strconv.FormatInt(time.Now().UnixNano(), 10)
		err = m.client.Add(&memcache.Item{Key: key, Value: []byte(seed)})
		if err == nil {
			return seed, nil
		}
		if !errors.Is(err, memcache.ErrNotStored) {
			return "", err
		}
		// Another writer seeded it first; read theirs.
	}
	return "", errors.New("generation counter keeps disappearing")
}

func (m *Memcached) storageKey(key string) (string, error) {
	ns, rest := SplitKey(key)
	gen, err := m.generation(ns)
	if err != nil {
		return "", err
	}
	return ns + ":" + gen + ":" + rest, nil
}

// Get returns the value stored under key in the current generation.
func (m *Memcached) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, Unavailable("get", err)
	}
	sk, err := m.storageKey(key)
	if err != nil {
		return "", false, Unavailable("get", err)
	}
	it, err := m.client.Get(sk)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return "", false, nil
		}
		return "", false, Unavailable("get", err)
	}
	return string(it.Value), true, nil
}

// Set stores value under key in the current generation.
func (m *Memcached) Set(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, Unavailable("set", err)
	}
	sk, err := m.storageKey(key)
	if err != nil {
		return false, Unavailable("set", err)
	}
	ttl = min(normalizeTTL(ttl), maxMemcachedTTL)
	err = m.client.Set(&memcache.Item{
		Key:        sk,
		Value:      []byte(value),
		Expiration: int32(max(ttl/time.Second, 1)),
	})
	if err != nil {
		return false, Unavailable("set", err)
	}
	return true, nil
}

// Purge deletes one key, or moves a namespace to a fresh generation.
func (m *Memcached) Purge(ctx context.Context, scope Scope) error {
	if err := ctx.Err(); err != nil {
		return Unavailable("purge", err)
	}
	if scope.Kind == ScopeNamespace {
		return m.bumpGeneration(ctx, scope.Value)
	}
	sk, err := m.storageKey(scope.Value)
	if err != nil {
		return Unavailable("purge", err)
	}
	if err = m.client.Delete(sk); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return Unavailable("purge", err)
	}
	return nil
}

func (m *Memcached) bumpGeneration(ctx context.Context, ns string) error {
	key := generationKey(ns)
	gen, err := m.client.Increment(key, 1)
	if errors.Is(err, memcache.ErrCacheMiss) {
		// Nothing was ever stored under the old counter, or it was evicted;
		// a fresh time-based seed differs from both.
		seed := uint64(time.Now().UnixNano())
		err = m.client.Set(&memcache.Item{Key: key, Value: []byte(strconv.FormatUint(seed, 10))})
		gen = seed
	}
	if err != nil {
		return Unavailable("purge", err)
	}
	m.logger.InfoContext(ctx, "Namespace purged",
		slog.String("namespace", ns),
		slog.Uint64("generation", gen),
	)
	return nil
}
