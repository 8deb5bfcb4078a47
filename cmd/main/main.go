package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/CTAG07/texmml/pkg/cachestore"
	"github.com/CTAG07/texmml/pkg/checker"
	"github.com/CTAG07/texmml/pkg/fixtures"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// errUsage marks a command line that could not be understood.
var errUsage = errors.New("usage error")

// app is what every command runs against.
type app struct {
	config  *Config
	logger  *slog.Logger
	backend *cacheBackend
	factory *checker.Factory
	stdin   io.Reader
	stdout  io.Writer
}

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"render":  {"render [--purge] [--full] [tex...]   render TeX from the arguments or stdin", cmdRender},
	"warm":    {"warm [--workers n] <fixtures.json>   fill the cache with every corpus input", cmdWarm},
	"bench":   {"bench [--no-compare] <fixtures.json> time an all-miss and an all-hit pass", cmdBench},
	"profile": {"profile [-o out.csv] <fixtures.json> write per-case miss/hit timings as CSV", cmdProfile},
	"purge":   {"purge                                drop every entry of the namespace", cmdPurge},
	"probe":   {"probe                                describe the backend and round-trip a key", cmdProbe},
	"stats":   {"stats [--prune]                      show SQLite cache statistics", cmdStats},
	"version": {"version                              print build information", cmdVersion},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses the global flags, builds the app and dispatches to a command.
// It returns the process exit code.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var (
		configPath string
		logLevel   string
		backend    string
		namespace  string
		engine     string
		display    string
	)
	flags := pflag.NewFlagSet("texmml", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVarP(&configPath, "config", "c", "./config.json", "Path to the JSON config file")
	flags.StringVar(&logLevel, "log-level", "", "Override server_config.log_level: debug|info|warn|error")
	flags.StringVar(&backend, "backend", "", "Override cache_config.backend: memory|sqlite|memcached")
	flags.StringVar(&namespace, "namespace", "", "Override cache_config.namespace")
	flags.StringVar(&engine, "engine", "", "Override render_config.engine: native|latex2mathml")
	flags.StringVar(&display, "display", "", "Override render_config.display: inline|block")
	flags.SetInterspersed(false)
	flags.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: texmml [flags] <command> [command flags] [args]\n\nCommands:\n")
		names := make([]string, 0, len(commands))
		for name := range commands {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			_, _ = fmt.Fprintf(stderr, "  %s\n", commands[name].usage)
		}
		_, _ = fmt.Fprintln(stderr, "\nFlags:")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	rest := flags.Args()
	if len(rest) == 0 {
		flags.Usage()
		return 2
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", rest[0])
		flags.Usage()
		return 2
	}
	if rest[0] == "version" {
		_ = cmdVersion(ctx, &app{stdout: stdout}, nil)
		return 0
	}

	// Log to stderr before the configured level is known.
	bootLogger := slog.New(slog.NewTextHandler(stderr, nil))
	config, err := LoadConfig(configPath, bootLogger)
	if err != nil {
		bootLogger.Error("Failed to load configuration", "error", err)
		return 1
	}
	overrides := map[string]*string{
		"log-level": &config.Server.LogLevel,
		"backend":   &config.Cache.Backend,
		"namespace": &config.Cache.Namespace,
		"engine":    &config.Render.Engine,
		"display":   &config.Render.Display,
	}
	values := map[string]string{
		"log-level": logLevel,
		"backend":   backend,
		"namespace": namespace,
		"engine":    engine,
		"display":   display,
	}
	for name, dst := range overrides {
		if flags.Changed(name) {
			*dst = values[name]
		}
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: parseLogLevel(config.Server.LogLevel)}))

	a, err := newApp(config, logger)
	if err != nil {
		logger.Error("Failed to start", "error", err)
		return 1
	}
	a.stdin, a.stdout = stdin, stdout
	defer func() {
		if err := a.backend.close(); err != nil {
			logger.Error("Failed to close cache backend", "error", err)
		}
	}()

	if err = cmd.run(ctx, a, rest[1:]); err != nil {
		if errors.Is(err, errUsage) {
			_, _ = fmt.Fprintf(stderr, "%v\nusage: texmml %s\n", err, cmd.usage)
			return 2
		}
		logger.Error("Command failed", "command", rest[0], "error", err)
		return 1
	}
	return 0
}

func newApp(config *Config, logger *slog.Logger) (*app, error) {
	backend, err := openBackend(config.Cache, logger)
	if err != nil {
		return nil, err
	}
	factory, err := checker.NewFactory(backend,
		checker.WithConfig(config.CheckerConfig()),
		checker.WithLogger(logger),
	)
	if err != nil {
		_ = backend.close()
		return nil, err
	}
	logger.Debug("Renderer ready",
		"backend", backend.name,
		"namespace", config.Cache.Namespace,
		"engine", config.Render.Engine,
		"display", factory.Display(),
	)
	return &app{config: config, logger: logger, backend: backend, factory: factory}, nil
}

// subFlags returns a flag set for a command that reports errors instead of
// exiting.
func subFlags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseSub(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

func (a *app) loadCases(fs *pflag.FlagSet) (*Harness, error) {
	if fs.NArg() != 1 {
		return nil, fmt.Errorf("%w: expected one fixtures file", errUsage)
	}
	cases, err := fixtures.LoadFile(fs.Arg(0))
	if err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("no usable cases in %s", fs.Arg(0))
	}
	a.logger.Info("Fixtures loaded", "path", fs.Arg(0), "cases", len(cases))
	return NewHarness(a.factory, cases, a.logger), nil
}

func cmdRender(ctx context.Context, a *app, args []string) error {
	var purge, full bool
	fs := subFlags("render")
	fs.BoolVar(&purge, "purge", false, "Drop the cached value before rendering")
	fs.BoolVar(&full, "full", false, "Wrap the output in a <math> element")
	if err := parseSub(fs, args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return renderOne(ctx, a.factory, strings.Join(fs.Args(), " "), purge, full, a.stdout)
	}
	input, err := io.ReadAll(a.stdin)
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}
	return renderOne(ctx, a.factory, strings.TrimRight(string(input), "\r\n"), purge, full, a.stdout)
}

func cmdWarm(ctx context.Context, a *app, args []string) error {
	var workers int
	fs := subFlags("warm")
	fs.IntVarP(&workers, "workers", "w", runtime.GOMAXPROCS(0), "Number of concurrent renders")
	if err := parseSub(fs, args); err != nil {
		return err
	}
	h, err := a.loadCases(fs)
	if err != nil {
		return err
	}
	return h.Warm(ctx, workers)
}

func cmdBench(ctx context.Context, a *app, args []string) error {
	var noCompare bool
	fs := subFlags("bench")
	fs.BoolVar(&noCompare, "no-compare", false, "Skip comparing the output with the reference")
	if err := parseSub(fs, args); err != nil {
		return err
	}
	h, err := a.loadCases(fs)
	if err != nil {
		return err
	}
	miss, err := h.RunMiss(ctx, !noCompare)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(a.stdout, miss)
	hit, err := h.RunHit(ctx, !noCompare)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(a.stdout, hit)
	if len(miss.Mismatches) > 0 {
		_, _ = fmt.Fprintf(a.stdout, "mismatched cases: %v\n", miss.Mismatches)
	}
	return nil
}

func cmdProfile(ctx context.Context, a *app, args []string) error {
	out := os.Getenv("TEXMML_PROFILE_OUT")
	if out == "" {
		out = "texmml_profile.csv"
	}
	fs := subFlags("profile")
	fs.StringVarP(&out, "output", "o", out, "CSV output path")
	if err := parseSub(fs, args); err != nil {
		return err
	}
	h, err := a.loadCases(fs)
	if err != nil {
		return err
	}
	return h.ProfileToFile(ctx, out)
}

func cmdPurge(ctx context.Context, a *app, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: purge takes no arguments", errUsage)
	}
	if err := a.factory.Purge(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.stdout, "purged namespace %s\n", a.config.Cache.Namespace)
	return nil
}

func cmdProbe(ctx context.Context, a *app, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: probe takes no arguments", errUsage)
	}
	return a.backend.probe(ctx, a.config.Cache.Namespace, a.stdout)
}

func cmdStats(ctx context.Context, a *app, args []string) error {
	var prune bool
	fs := subFlags("stats")
	fs.BoolVar(&prune, "prune", false, "Delete expired entries first")
	if err := parseSub(fs, args); err != nil {
		return err
	}
	if a.backend.sqlite == nil {
		return fmt.Errorf("stats are only kept by the %s backend, not %s", backendSQLite, a.backend.name)
	}
	if prune {
		removed, err := a.backend.sqlite.PruneExpired(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(a.stdout, "pruned %d expired entries\n", removed)
	}
	stats, err := a.backend.sqlite.GetStats(ctx)
	if err != nil {
		return err
	}
	writeStats(a.stdout, stats)
	return nil
}

func writeStats(w io.Writer, stats *cachestore.Stats) {
	_, _ = fmt.Fprintf(w, "%-24s %10s %10s %12s\n", "namespace", "entries", "expired", "bytes")
	for _, ns := range stats.Namespaces {
		_, _ = fmt.Fprintf(w, "%-24s %10d %10d %12d\n", ns.Namespace, ns.Entries, ns.Expired, ns.ValueBytes)
	}
	_, _ = fmt.Fprintf(w, "%-24s %10d %10d\n", "total", stats.Entries, stats.Expired)
}

func cmdVersion(_ context.Context, a *app, _ []string) error {
	_, _ = fmt.Fprintf(a.stdout, "texmml %s (commit %s, built %s)\n", Version, Commit, BuildDate)
	return nil
}
