package fixtures

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const corpus = `[
	{"input": "x+5", "output": "<math><mi>x</mi></math>"},
	{"input": "a", "output": "<math/>", "skipped": true},
	{"input": "b", "output": "<math/>", "skipped": false},
	{"input": "c", "output": "<math/>", "skipped": "0"},
	{"input": "d", "output": "<math/>", "skipped": "yes"},
	{"input": "", "output": "<math/>"},
	{"input": "e", "output": ""},
	{"input": "f"},
	{"input": 7, "output": "<math/>"},
	"not an object",
	[1, 2],
	null
]`

func TestLoad(t *testing.T) {
	got, err := Load(strings.NewReader(corpus))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []Case{
		{Input: "x+5", Output: "<math><mi>x</mi></math>"},
		{Input: "b", Output: "<math/>"},
		{Input: "c", Output: "<math/>"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsNonArray(t *testing.T) {
	for _, in := range []string{`{"input": "x"}`, `not json`, ``} {
		if _, err := Load(strings.NewReader(in)); err == nil {
			t.Errorf("expected an error for %q", in)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reference.json")
	if err := os.WriteFile(path, []byte(corpus), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 cases, got %d", len(got))
	}
	if _, err = LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{`\frac{a}{b}`, 5, `\frac…`},
		{"αβγδ", 2, "αβ…"},
	}
	for _, tt := range tests {
		if got := Preview(tt.in, tt.n); got != tt.want {
			t.Errorf("Preview(%q, %d) = %q, expected %q", tt.in, tt.n, got, tt.want)
		}
	}
}
