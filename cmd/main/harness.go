package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/natefinch/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/CTAG07/texmml/pkg/checker"
	"github.com/CTAG07/texmml/pkg/fixtures"
	"github.com/CTAG07/texmml/pkg/mml"
)

const previewChars = 40

// Harness drives a factory over the reference corpus.
type Harness struct {
	factory  *checker.Factory
	cases    []fixtures.Case
	expected []mml.Fragment // nil where the expected output does not parse
	logger   *slog.Logger
}

// NewHarness parses the expected output of every case up front so that
// timed passes only pay for rendering and comparison.
func NewHarness(f *checker.Factory, cases []fixtures.Case, logger *slog.Logger) *Harness {
	h := &Harness{
		factory:  f,
		cases:    cases,
		expected: make([]mml.Fragment, len(cases)),
		logger:   logger,
	}
	for i, c := range cases {
		root, err := mml.Parse(c.Output)
		if err == nil {
			h.expected[i], err = mml.InnerFragment(root)
		}
		if err != nil {
			logger.Warn("Expected output does not parse, case will not be compared", "index", i, "error", err)
		}
	}
	return h
}

// Report summarizes one pass over the corpus.
type Report struct {
	Pass        string
	Cases       int
	Hits        int
	Diagnostics int
	Mismatches  []int
	Elapsed     time.Duration
}

func (r Report) String() string {
	per := time.Duration(0)
	if r.Cases > 0 {
		per = r.Elapsed / time.Duration(r.Cases)
	}
	return fmt.Sprintf("[%s] cases=%d hits=%d diagnostics=%d mismatches=%d elapsed=%s per_case=%s",
		r.Pass, r.Cases, r.Hits, r.Diagnostics, len(r.Mismatches), r.Elapsed.Round(time.Microsecond), per)
}

func (h *Harness) render(ctx context.Context, input string, purge bool) (checker.RenderResult, error) {
	c, err := h.factory.NewLocalChecker(input, checker.KindTeX, purge)
	if err != nil {
		return checker.RenderResult{}, err
	}
	return c.Render(ctx), nil
}

// Warm renders every case without purging, using up to workers goroutines.
func (h *Harness) Warm(ctx context.Context, workers int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, c := range h.cases {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, err := h.render(gctx, c.Input, false)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	h.logger.Info("Cache warmed", "cases", len(h.cases), "workers", workers)
	return nil
}

// ClearCache drops the factory namespace the way a purging checker with no
// input does.
func (h *Harness) ClearCache(ctx context.Context) error {
	c, err := h.factory.NewLocalChecker("", checker.KindTeX, true)
	if err != nil {
		return err
	}
	return c.Purge(ctx)
}

// RunMiss clears the cache, then renders every case with purge set.
func (h *Harness) RunMiss(ctx context.Context, compare bool) (Report, error) {
	if err := h.ClearCache(ctx); err != nil {
		return Report{}, fmt.Errorf("failed to clear cache: %w", err)
	}
	return h.run(ctx, "miss", true, compare)
}

// RunHit warms the cache, then renders every case from it.
func (h *Harness) RunHit(ctx context.Context, compare bool) (Report, error) {
	if err := h.Warm(ctx, 1); err != nil {
		return Report{}, fmt.Errorf("failed to warm cache: %w", err)
	}
	return h.run(ctx, "hit", false, compare)
}

func (h *Harness) run(ctx context.Context, pass string, purge, compare bool) (Report, error) {
	rep := Report{Pass: pass, Cases: len(h.cases)}
	start := time.Now()
	for i, c := range h.cases {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		res, err := h.render(ctx, c.Input, purge)
		if err != nil {
			return rep, err
		}
		if res.Cached {
			rep.Hits++
		}
		if res.IsDiagnostic() {
			rep.Diagnostics++
		}
		if compare && h.expected[i] != nil && !mml.EqualFragments(res.Fragment, h.expected[i]) {
			rep.Mismatches = append(rep.Mismatches, i)
			h.logger.Debug("Rendered output differs from reference",
				"index", i,
				"input", fixtures.Preview(c.Input, previewChars),
				"got", res.Markup,
			)
		}
	}
	rep.Elapsed = time.Since(start)
	return rep, nil
}

// Profile times a purging render and a cached render of every case and
// writes one CSV row per case.
func (h *Harness) Profile(ctx context.Context, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"index", "len_bytes", "len_chars", "miss_ms", "hit_ms", "preview"}); err != nil {
		return err
	}
	for i, c := range h.cases {
		if err := ctx.Err(); err != nil {
			return err
		}
		miss, err := h.measure(ctx, c.Input, true)
		if err != nil {
			return err
		}
		hit, err := h.measure(ctx, c.Input, false)
		if err != nil {
			return err
		}
		row := []string{
			strconv.Itoa(i),
			strconv.Itoa(len(c.Input)),
			strconv.Itoa(utf8.RuneCountInString(c.Input)),
			strconv.FormatFloat(miss, 'f', 3, 64),
			strconv.FormatFloat(hit, 'f', 3, 64),
			fixtures.Preview(c.Input, previewChars),
		}
		if err = cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ProfileToFile runs Profile and replaces path with the result in one step.
func (h *Harness) ProfileToFile(ctx context.Context, path string) error {
	var buf bytes.Buffer
	if err := h.Profile(ctx, &buf); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	h.logger.Info("Profile written", "path", path, "cases", len(h.cases))
	return nil
}

// measure returns the runtime of one render in milliseconds.
func (h *Harness) measure(ctx context.Context, input string, purge bool) (float64, error) {
	start := time.Now()
	if _, err := h.render(ctx, input, purge); err != nil {
		return 0, err
	}
	return float64(time.Since(start).Nanoseconds()) / 1e6, nil
}

// renderOne writes the markup of a single input. With full set the fragment
// is wrapped in its <math> element.
func renderOne(ctx context.Context, f *checker.Factory, input string, purge, full bool, w io.Writer) error {
	c, err := f.NewLocalChecker(input, checker.KindTeX, purge)
	if err != nil {
		return err
	}
	out := c.PresentationMathML(ctx)
	if full {
		out = c.FullMathML(ctx)
	}
	if _, err = fmt.Fprintln(w, out); err != nil {
		return err
	}
	if res := c.Render(ctx); res.Err != nil {
		return fmt.Errorf("input rendered as a diagnostic: %w", res.Err)
	}
	return nil
}
