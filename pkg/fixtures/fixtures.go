// Package fixtures loads the reference corpus of TeX inputs and the MathML
// they are expected to render to.
package fixtures

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"unicode/utf8"
)

// Case is one reference pair. Output is a complete <math> document.
type Case struct {
	Input  string
	Output string
}

type record struct {
	Input   any `json:"input"`
	Output  any `json:"output"`
	Skipped any `json:"skipped"`
}

// Load reads a JSON array of {"input", "output", "skipped"} records.
// Records that are not objects, that are marked skipped, or whose input or
// output is missing, empty or not a string are left out.
func Load(r io.Reader) ([]Case, error) {
	var rows []json.RawMessage
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("could not decode fixtures: %w", err)
	}

	cases := make([]Case, 0, len(rows))
	for _, raw := range rows {
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		if truthy(rec.Skipped) {
			continue
		}
		in, ok1 := rec.Input.(string)
		out, ok2 := rec.Output.(string)
		if !ok1 || !ok2 || in == "" || out == "" {
			continue
		}
		cases = append(cases, Case{Input: in, Output: out})
	}
	return cases, nil
}

// LoadFile is Load on the named file.
func LoadFile(path string) ([]Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	return Load(f)
}

// truthy follows the loose notion of emptiness the corpus was written for:
// false, 0, "", "0", null and empty containers do not mark a record skipped.
func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != "" && v != "0"
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}
	return true
}

// Preview shortens s to at most n characters for reports, marking the cut.
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "…"
}
