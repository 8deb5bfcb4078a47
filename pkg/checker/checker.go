package checker

import (
	"context"
	"sync"

	"github.com/CTAG07/texmml/pkg/cachestore"
	"github.com/CTAG07/texmml/pkg/mml"
)

// State is the progress of a LocalChecker.
type State int

const (
	// Uninitialized means the checker has not been rendered yet.
	Uninitialized State = iota
	// CacheHit means the fragment is being taken from the cache.
	CacheHit
	// CacheMiss means the input is being parsed.
	CacheMiss
	// Rendered means the result is available.
	Rendered
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case CacheHit:
		return "cache-hit"
	case CacheMiss:
		return "cache-miss"
	case Rendered:
		return "rendered"
	default:
		return "unknown"
	}
}

// LocalChecker renders one input through its factory's cache. The result of
// the first Render is kept; a checker is safe for concurrent use.
type LocalChecker struct {
	factory    *Factory
	input      string
	kind       string
	purge      bool
	key        string
	purgeScope cachestore.Scope

	mu     sync.Mutex
	state  State
	result *RenderResult
}

// Input returns the source the checker renders.
func (c *LocalChecker) Input() string { return c.input }

// Key returns the cache key of the input.
func (c *LocalChecker) Key() string { return c.key }

// State returns the current state of the checker.
func (c *LocalChecker) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Render returns the fragment for the input, from the cache when possible.
// It never fails: TeX errors become an <merror> fragment and backend errors
// are logged and bypassed.
func (c *LocalChecker) Render(ctx context.Context) RenderResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result != nil {
		return *c.result
	}

	f := c.factory
	if c.purge {
		if err := f.purge(ctx, c.purgeScope); err != nil {
			f.logBackendError(ctx, "purge", c.key, err)
		}
	} else if res, ok := f.lookup(ctx, c.key); ok {
		c.state = CacheHit
		return c.finish(res)
	}

	c.state = CacheMiss
	return c.finish(f.renderAndStore(ctx, c.key, c.input))
}

func (c *LocalChecker) finish(res RenderResult) RenderResult {
	c.state = Rendered
	c.result = &res
	return res
}

// Purge drops the cached value the same way a purging render would, and
// resets the checker so that the next Render starts over.
func (c *LocalChecker) Purge(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Uninitialized
	c.result = nil
	return c.factory.purge(ctx, c.purgeScope)
}

// PresentationMathML returns the rendered fragment markup, without the
// enclosing <math> element.
func (c *LocalChecker) PresentationMathML(ctx context.Context) string {
	return c.Render(ctx).Markup
}

// FullMathML returns the rendered fragment inside a <math> element.
func (c *LocalChecker) FullMathML(ctx context.Context) string {
	res := c.Render(ctx)
	attrs := mml.Attrs("xmlns", mml.Namespace, "display", c.factory.display)
	return res.Fragment.Clone().Wrap("math", attrs).String()
}
