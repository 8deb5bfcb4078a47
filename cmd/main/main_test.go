package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const referenceCorpus = `[
	{"input": "x+5", "output": "<math xmlns=\"http://www.w3.org/1998/Math/MathML\" display=\"block\">\n  <mi>x</mi>\n  <mo>+</mo>\n  <mn>5</mn>\n</math>"},
	{"input": "\\frac{a}{b}", "output": "<math><mfrac><mi>a</mi><mi>b</mi></mfrac></math>"},
	{"input": "y", "output": "<math><mi>z</mi></math>"},
	{"input": "ignored", "output": "<math/>", "skipped": true}
]`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// setupWorkspace writes a config using the given backend and a fixtures
// file into a temporary directory.
func setupWorkspace(t *testing.T, backend string) (configPath, fixturesPath string) {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Server.DataDir = dir
	cfg.Cache.Backend = backend
	cfg.Cache.SQLitePath = filepath.Join(dir, "cache.db")
	configPath = filepath.Join(dir, "config.json")
	if err := SaveConfig(configPath, cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	fixturesPath = filepath.Join(dir, "reference.json")
	if err := os.WriteFile(fixturesPath, []byte(referenceCorpus), 0o644); err != nil {
		t.Fatalf("failed to write fixtures: %v", err)
	}
	return configPath, fixturesPath
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestLoadConfigCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg, err := LoadConfig(path, discardLogger())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("expected defaults (-want +got):\n%s", diff)
	}
	if _, err = os.Stat(path); err != nil {
		t.Errorf("expected the default config to be written: %v", err)
	}
}

func TestLoadConfigOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"cache_config": {"backend": "memory", "namespace": "wiki"}, "render_config": null}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	cfg, err := LoadConfig(path, discardLogger())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Cache.Backend != "memory" || cfg.Cache.Namespace != "wiki" {
		t.Errorf("expected file values to win, got %+v", cfg.Cache)
	}
	if cfg.Cache.TTLSeconds != DefaultCacheConfig().TTLSeconds {
		t.Errorf("expected unset fields to keep defaults, got ttl %d", cfg.Cache.TTLSeconds)
	}
	if diff := cmp.Diff(DefaultRenderConfig(), cfg.Render); diff != "" {
		t.Errorf("expected a null section to fall back to defaults (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(DefaultServerConfig(), cfg.Server); diff != "" {
		t.Errorf("expected a missing section to keep defaults (-want +got):\n%s", diff)
	}

	if err = os.WriteFile(path, []byte(`{`), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err = LoadConfig(path, discardLogger()); err == nil {
		t.Error("expected an error for malformed JSON")
	}
}

func TestCheckerConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.TTLSeconds = 60
	cfg.Cache.TimeoutMs = 250
	cfg.Render.Display = "inline"
	cc := cfg.CheckerConfig()
	if cc.TTL.Seconds() != 60 || cc.Timeout.Milliseconds() != 250 || cc.TeX.Display != "inline" {
		t.Errorf("unexpected translation %+v", cc)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, expected %v", in, got, want)
		}
	}
}

func TestRunRender(t *testing.T) {
	configPath, _ := setupWorkspace(t, backendMemory)

	code, out, errOut := runCLI(t, "", "-c", configPath, "render", "x+5")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, errOut)
	}
	if out != "<mi>x</mi><mo>+</mo><mn>5</mn>\n" {
		t.Errorf("unexpected output %q", out)
	}

	code, out, _ = runCLI(t, "y\n", "-c", configPath, "--display", "inline", "render", "--full")
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	want := `<math xmlns="http://www.w3.org/1998/Math/MathML" display="inline"><mi>y</mi></math>` + "\n"
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}

	code, out, _ = runCLI(t, "", "-c", configPath, "render", `\frac{1}`)
	if code != 1 || !strings.HasPrefix(out, "<merror>") {
		t.Errorf("expected a diagnostic and exit 1, got %d %q", code, out)
	}
}

func TestRunUsageErrors(t *testing.T) {
	configPath, _ := setupWorkspace(t, backendMemory)
	tests := [][]string{
		{},
		{"-c", configPath, "frobnicate"},
		{"-c", configPath, "warm"},
		{"-c", configPath, "purge", "extra"},
		{"-c", configPath, "render", "--bogus"},
	}
	for _, args := range tests {
		if code, _, _ := runCLI(t, "", args...); code != 2 {
			t.Errorf("args %q: expected exit 2, got %d", args, code)
		}
	}
	if code, out, _ := runCLI(t, "", "version"); code != 0 || !strings.HasPrefix(out, "texmml dev") {
		t.Errorf("unexpected version output %d %q", code, out)
	}
}

func TestRunBench(t *testing.T) {
	configPath, fixturesPath := setupWorkspace(t, backendSQLite)

	code, out, errOut := runCLI(t, "", "-c", configPath, "bench", fixturesPath)
	if code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, errOut)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected two reports and a mismatch line, got:\n%s", out)
	}
	if !strings.HasPrefix(lines[0], "[miss] cases=3 hits=0 diagnostics=0 mismatches=1") {
		t.Errorf("unexpected miss report %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "[hit] cases=3 hits=3 diagnostics=0 mismatches=1") {
		t.Errorf("unexpected hit report %q", lines[1])
	}
	if lines[2] != "mismatched cases: [2]" {
		t.Errorf("unexpected mismatch line %q", lines[2])
	}

	code, out, _ = runCLI(t, "", "-c", configPath, "stats")
	if code != 0 || !strings.Contains(out, "mathml") {
		t.Errorf("expected stats for the mathml namespace, got %d %q", code, out)
	}
	if code, _, _ = runCLI(t, "", "-c", configPath, "purge"); code != 0 {
		t.Errorf("expected purge to succeed, got %d", code)
	}
	code, out, _ = runCLI(t, "", "-c", configPath, "stats", "--prune")
	if code != 0 || !strings.Contains(out, "pruned 0 expired entries") || strings.Contains(out, "mathml ") {
		t.Errorf("expected an empty cache after the purge, got %d %q", code, out)
	}
}

func TestRunWarmAndProbe(t *testing.T) {
	configPath, fixturesPath := setupWorkspace(t, backendSQLite)
	if code, _, errOut := runCLI(t, "", "-c", configPath, "warm", "-w", "4", fixturesPath); code != 0 {
		t.Fatalf("expected warm to succeed, got %d: %s", code, errOut)
	}
	code, out, _ := runCLI(t, "", "-c", configPath, "probe")
	if code != 0 || !strings.Contains(out, `probe set=true get="ok" found=true`) {
		t.Errorf("unexpected probe output %d %q", code, out)
	}
	if code, _, _ = runCLI(t, "", "-c", configPath, "--backend", backendMemory, "stats"); code != 1 {
		t.Errorf("expected stats on the memory backend to fail, got %d", code)
	}
}

func TestRunProfile(t *testing.T) {
	configPath, fixturesPath := setupWorkspace(t, backendMemory)
	outPath := filepath.Join(t.TempDir(), "profile.csv")
	if code, _, errOut := runCLI(t, "", "-c", configPath, "profile", "-o", outPath, fixturesPath); code != 0 {
		t.Fatalf("expected profile to succeed, got %d: %s", code, errOut)
	}
	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("failed to open profile: %v", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("profile is not valid CSV: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected a header and 3 rows, got %d", len(rows))
	}
	if diff := cmp.Diff([]string{"index", "len_bytes", "len_chars", "miss_ms", "hit_ms", "preview"}, rows[0]); diff != "" {
		t.Errorf("unexpected header (-want +got):\n%s", diff)
	}
	if rows[2][0] != "1" || rows[2][1] != "11" || rows[2][5] != `\frac{a}{b}` {
		t.Errorf("unexpected row %q", rows[2])
	}
}
