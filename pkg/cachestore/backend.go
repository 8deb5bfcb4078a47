// Package cachestore defines the key-value contract the renderer caches
// through, together with in-process, SQLite and memcached implementations.
//
// Keys have the form "namespace:rest". Backends use the namespace to purge
// every entry of one renderer configuration at once.
package cachestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultTTL is used when Set is called with a non-positive TTL.
const DefaultTTL = 24 * time.Hour

// ErrCacheUnavailable is matched by every error that means the backend could
// not be reached or did not answer in time. Callers treat it as a miss and
// carry on without the cache.
var ErrCacheUnavailable = errors.New("cachestore: cache unavailable")

// Unavailable wraps err so that it matches ErrCacheUnavailable while keeping
// the underlying cause inspectable.
func Unavailable(op string, err error) error {
	if errors.Is(err, ErrCacheUnavailable) {
		return err
	}
	return fmt.Errorf("cachestore: %s: %w: %w", op, ErrCacheUnavailable, err)
}

// Backend is a key-value cache with expiry. Implementations must be safe for
// concurrent use. After Purge returns, no Get in the same process may observe
// a value that was stored before the purge.
type Backend interface {
	// Get returns the stored value and true, or false on a miss.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key for ttl and reports whether it was stored.
	Set(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Purge removes the entries selected by scope.
	Purge(ctx context.Context, scope Scope) error
}

// ScopeKind tells a Scope apart.
type ScopeKind int

const (
	// ScopeKey selects a single key.
	ScopeKey ScopeKind = iota
	// ScopeNamespace selects every key of a namespace.
	ScopeNamespace
)

// Scope selects the entries a Purge removes.
type Scope struct {
	Kind  ScopeKind
	Value string
}

// KeyScope selects exactly one key.
func KeyScope(key string) Scope {
	return Scope{Kind: ScopeKey, Value: key}
}

// NamespaceScope selects all keys in namespace ns.
func NamespaceScope(ns string) Scope {
	return Scope{Kind: ScopeNamespace, Value: ns}
}

func (s Scope) String() string {
	if s.Kind == ScopeNamespace {
		return "namespace " + s.Value
	}
	return "key " + s.Value
}

// SplitKey returns the namespace of key and the remainder after the first
// colon. A key without a colon belongs to the empty namespace.
func SplitKey(key string) (namespace, rest string) {
	ns, rest, ok := strings.Cut(key, ":")
	if !ok {
		return "", key
	}
	return ns, rest
}

func normalizeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}

// WithTimeout bounds every call on b by d. A call that runs out of time, or
// whose context is cancelled, fails with ErrCacheUnavailable. A non-positive d
// returns b unchanged.
func WithTimeout(b Backend, d time.Duration) Backend {
	if d <= 0 {
		return b
	}
	return &bounded{next: b, timeout: d}
}

type bounded struct {
	next    Backend
	timeout time.Duration
}

func (b *bounded) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	v, ok, err := b.next.Get(ctx, key)
	if err != nil {
		return "", false, deadline("get", err)
	}
	return v, ok, nil
}

func (b *bounded) Set(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	stored, err := b.next.Set(ctx, key, value, ttl)
	if err != nil {
		return false, deadline("set", err)
	}
	return stored, nil
}

func (b *bounded) Purge(ctx context.Context, scope Scope) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	if err := b.next.Purge(ctx, scope); err != nil {
		return deadline("purge", err)
	}
	return nil
}

// Unwrap returns the bounded backend.
func (b *bounded) Unwrap() Backend {
	return b.next
}

func deadline(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Unavailable(op, err)
	}
	return err
}
