package checker

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/CTAG07/texmml/pkg/cachestore"
	"github.com/CTAG07/texmml/pkg/mml"
	"github.com/CTAG07/texmml/pkg/tex"
)

// Factory creates LocalCheckers that share one backend and configuration.
// It is safe for concurrent use.
type Factory struct {
	backend cachestore.Backend
	cfg     Config
	display string
	render  engine
	logger  *slog.Logger
	flights singleflight.Group
}

// Option configures a Factory.
type Option func(*Factory)

// WithLogger sets the logger of the factory and its checkers. A nil logger
// is ignored. By default, all logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(f *Factory) {
		f.cfg = cfg
	}
}

// NewFactory binds backend to a rendering configuration. Every backend call
// made through the factory is bounded by Config.Timeout.
func NewFactory(backend cachestore.Backend, opts ...Option) (*Factory, error) {
	if backend == nil {
		return nil, errors.New("checker: nil backend")
	}
	f := &Factory{
		cfg:    DefaultConfig(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	if err := f.cfg.validate(); err != nil {
		return nil, err
	}
	f.backend = cachestore.WithTimeout(backend, f.cfg.Timeout)
	f.display = tex.NewParser(f.cfg.TeX).Config().Display
	f.render = newEngine(f.cfg)
	return f, nil
}

// Config returns the configuration of the factory.
func (f *Factory) Config() Config {
	return f.cfg
}

// Display returns the display mode fragments are rendered for.
func (f *Factory) Display() string {
	return f.display
}

// NewLocalChecker returns a checker for input. It does no work until the
// checker is rendered. With purge set, the first render drops the cached
// value (or the whole namespace, see Config.NamespacePurge) before
// rendering afresh; an empty input with purge set always drops the
// namespace.
func (f *Factory) NewLocalChecker(input, kind string, purge bool) (*LocalChecker, error) {
	if kind != KindTeX {
		return nil, &UnsupportedKindError{Kind: kind}
	}
	key := CacheKey(f.cfg.Namespace, kind, input)
	scope := cachestore.KeyScope(key)
	if f.cfg.NamespacePurge || input == "" {
		scope = cachestore.NamespaceScope(f.cfg.Namespace)
	}
	return &LocalChecker{
		factory:    f,
		input:      input,
		kind:       kind,
		purge:      purge,
		key:        key,
		purgeScope: scope,
	}, nil
}

// Purge drops every cached fragment of the factory namespace.
func (f *Factory) Purge(ctx context.Context) error {
	return f.purge(ctx, cachestore.NamespaceScope(f.cfg.Namespace))
}

func (f *Factory) purge(ctx context.Context, scope cachestore.Scope) error {
	if err := f.backend.Purge(ctx, scope); err != nil {
		return err
	}
	f.logger.DebugContext(ctx, "Cache purged", "scope", scope.String())
	return nil
}

// lookup returns the cached fragment under key. Any failure is logged and
// reported as a miss.
func (f *Factory) lookup(ctx context.Context, key string) (RenderResult, bool) {
	value, ok, err := f.backend.Get(ctx, key)
	if err != nil {
		f.logBackendError(ctx, "get", key, err)
		return RenderResult{}, false
	}
	if !ok {
		f.logger.DebugContext(ctx, "Cache miss", "key", key)
		return RenderResult{}, false
	}
	frag, err := mml.ParseFragment(value)
	if err != nil {
		f.logger.WarnContext(ctx, "Discarding malformed cache entry", "key", key, "error", err)
		if err = f.backend.Purge(ctx, cachestore.KeyScope(key)); err != nil {
			f.logBackendError(ctx, "purge", key, err)
		}
		return RenderResult{}, false
	}
	f.logger.DebugContext(ctx, "Cache hit", "key", key)
	return RenderResult{Fragment: frag, Markup: value, Cached: true}, true
}

// renderAndStore renders input and stores the markup under key. Concurrent
// calls for the same key share one render; every caller gets its own copy of
// the tree.
func (f *Factory) renderAndStore(ctx context.Context, key, input string) RenderResult {
	v, _, shared := f.flights.Do(key, func() (any, error) {
		res := f.renderDirect(input)
		ttl := f.cfg.TTL
		if res.Err != nil {
			ttl = f.cfg.ErrorTTL
			f.logger.DebugContext(ctx, "Rendered diagnostic", "key", key, "error", res.Err)
		}
		if _, err := f.backend.Set(ctx, key, res.Markup, ttl); err != nil {
			f.logBackendError(ctx, "set", key, err)
		}
		return res, nil
	})
	res := v.(RenderResult)
	if shared {
		res.Fragment = res.Fragment.Clone()
	}
	return res
}

func (f *Factory) renderDirect(input string) RenderResult {
	frag, err := f.render(input)
	if err != nil {
		frag = diagnostic(err)
	}
	return RenderResult{Fragment: frag, Markup: frag.String(), Err: err}
}

func (f *Factory) logBackendError(ctx context.Context, op, key string, err error) {
	if errors.Is(err, cachestore.ErrCacheUnavailable) {
		f.logger.WarnContext(ctx, "Cache unavailable, rendering without it", "op", op, "key", key, "error", err)
		return
	}
	f.logger.ErrorContext(ctx, "Cache backend failed", "op", op, "key", key, "error", err)
}
