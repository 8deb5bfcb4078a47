package cachestore

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/maypok86/otter/v2"
)

// DefaultMemoryEntries bounds each namespace of a Memory backend when no
// size is given.
const DefaultMemoryEntries = 10_000

type memoryEntry struct {
	value string
	ttl   time.Duration
}

// Memory is an in-process Backend. Every namespace gets its own bounded
// cache, so purging a namespace is a map delete rather than a scan.
type Memory struct {
	mu         sync.RWMutex
	namespaces map[string]*otter.Cache[string, memoryEntry]
	maxEntries int
	logger     *slog.Logger
}

// NewMemory creates a Memory backend holding at most maxEntries values per
// namespace. A non-positive maxEntries uses DefaultMemoryEntries.
func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMemoryEntries
	}
	return &Memory{
		namespaces: make(map[string]*otter.Cache[string, memoryEntry]),
		maxEntries: maxEntries,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the backend. By default, all logs are discarded.
func (m *Memory) SetLogger(logger *slog.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

func (m *Memory) namespace(ns string, create bool) *otter.Cache[string, memoryEntry] {
	m.mu.RLock()
	c := m.namespaces[ns]
	m.mu.RUnlock()
	if c != nil || !create {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c = m.namespaces[ns]; c == nil {
		c = otter.Must(&otter.Options[string, memoryEntry]{
			MaximumSize: m.maxEntries,
			ExpiryCalculator: otter.ExpiryWritingFunc(func(e otter.Entry[string, memoryEntry]) time.Duration {
				return e.Value.ttl
			}),
		})
		m.namespaces[ns] = c
	}
	return c
}

// Get returns the live value stored under key.
func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, Unavailable("get", err)
	}
	ns, _ := SplitKey(key)
	c := m.namespace(ns, false)
	if c == nil {
		return "", false, nil
	}
	e, ok := c.GetIfPresent(key)
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

// Set stores value under key until ttl elapses.
func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, Unavailable("set", err)
	}
	ns, _ := SplitKey(key)
	m.namespace(ns, true).Set(key, memoryEntry{value: value, ttl: normalizeTTL(ttl)})
	return true, nil
}

// Purge removes one key or drops a whole namespace.
func (m *Memory) Purge(ctx context.Context, scope Scope) error {
	if err := ctx.Err(); err != nil {
		return Unavailable("purge", err)
	}
	switch scope.Kind {
	case ScopeNamespace:
		m.mu.Lock()
		c := m.namespaces[scope.Value]
		delete(m.namespaces, scope.Value)
		m.mu.Unlock()
		if c != nil {
			c.InvalidateAll()
		}
		m.logger.InfoContext(ctx, "Namespace purged", slog.String("namespace", scope.Value))
	default:
		ns, _ := SplitKey(scope.Value)
		if c := m.namespace(ns, false); c != nil {
			c.Invalidate(scope.Value)
		}
	}
	return nil
}

// Len returns the approximate number of live entries across namespaces.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.namespaces {
		n += c.EstimatedSize()
	}
	return n
}
