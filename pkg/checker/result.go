package checker

import "github.com/CTAG07/texmml/pkg/mml"

// RenderResult is the outcome of rendering one input. It must not be
// modified once returned.
type RenderResult struct {
	// Fragment holds the top-level nodes under the implicit <math> root.
	Fragment mml.Fragment

	// Markup is Fragment serialized, exactly as it is stored in the cache.
	Markup string

	// Cached reports whether the fragment was read from the cache.
	Cached bool

	// Err is the parse error behind a diagnostic fragment. It is only set
	// when the input was parsed by this render; a diagnostic read back from
	// the cache is recognised by IsDiagnostic instead.
	Err error
}

// IsDiagnostic reports whether the fragment is a single <merror>.
func (r RenderResult) IsDiagnostic() bool {
	return len(r.Fragment) == 1 && r.Fragment[0].IsElement("merror")
}

// Equivalent reports whether both results hold the same markup once
// whitespace, comments and attribute order are disregarded.
func (r RenderResult) Equivalent(other RenderResult) bool {
	return mml.EqualFragments(r.Fragment, other.Fragment)
}
