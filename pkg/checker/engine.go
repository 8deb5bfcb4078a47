package checker

import (
	"fmt"
	"strings"

	"git.sr.ht/~mekyt/latex2mathml"

	"github.com/CTAG07/texmml/pkg/mml"
	"github.com/CTAG07/texmml/pkg/tex"
)

// engine turns one input into a fragment.
type engine func(input string) (mml.Fragment, error)

func newEngine(cfg Config) engine {
	p := tex.NewParser(cfg.TeX)
	if cfg.Engine == EngineLaTeX2MathML {
		display := p.Config().Display
		return func(input string) (mml.Fragment, error) {
			return convertExternal(input, display)
		}
	}
	return p.Parse
}

// convertExternal runs latex2mathml, which reports nothing but its output
// string, and reads that output back into a fragment.
func convertExternal(input, display string) (frag mml.Fragment, err error) {
	defer func() {
		if r := recover(); r != nil {
			frag, err = nil, fmt.Errorf("latex2mathml: %v", r)
		}
	}()
	root, err := mml.Parse(latex2mathml.Convert(input, mml.Namespace, display, 0))
	if err != nil {
		return nil, err
	}
	frag, err = mml.InnerFragment(root)
	if err != nil {
		return nil, err
	}
	for _, n := range frag {
		dropLayoutSpace(n)
	}
	return frag, nil
}

var tokenElements = map[string]bool{"mi": true, "mn": true, "mo": true, "mtext": true, "ms": true}

// dropLayoutSpace removes whitespace-only text between elements, which
// indentation leaves behind.
func dropLayoutSpace(n *mml.Node) {
	if n.Kind != mml.ElementNode || tokenElements[n.Tag] {
		return
	}
	kept := n.Children[:0]
	for _, c := range n.Children {
		if c.Kind == mml.TextNode && strings.TrimSpace(c.Data) == "" {
			continue
		}
		dropLayoutSpace(c)
		kept = append(kept, c)
	}
	n.Children = kept
}

func diagnostic(err error) mml.Fragment {
	return mml.Fragment{mml.Merror(err.Error())}
}
