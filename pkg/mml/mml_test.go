package mml

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleTree() *Node {
	return NewElement("math", Attrs("display", "block"),
		Mi("x", nil),
		Mo("+", nil),
		Mn("5", nil),
		Msup(Mi("y", nil), Mn("2", nil)),
		Mtext(`a < b & "c"`, Attrs("class", `q"x`)),
	)
}

func TestNewElementEmptyTagPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected NewElement with an empty tag to panic")
		}
	}()
	NewElement("", nil)
}

func TestAttributesOrderAndUniqueness(t *testing.T) {
	a := Attrs("b", "1", "a", "2")
	a.Set("b", "3")
	a.Set("c", "4")
	want := Attributes{{"b", "3"}, {"a", "2"}, {"c", "4"}}
	if diff := cmp.Diff(want, a); diff != "" {
		t.Errorf("unexpected attributes (-want +got):\n%s", diff)
	}

	a.Delete("a")
	if a.Has("a") {
		t.Error("expected 'a' to be deleted")
	}
	if v, ok := a.Get("c"); !ok || v != "4" {
		t.Errorf("expected c=4, got %q (present=%v)", v, ok)
	}
	a.Delete("missing")
	if a.Len() != 2 {
		t.Errorf("expected 2 attributes, got %d", a.Len())
	}
}

func TestNewElementCopiesAttributes(t *testing.T) {
	attrs := Attrs("mathvariant", "bold")
	n := NewElement("mi", attrs, Text("x"))
	attrs.Set("mathvariant", "italic")
	if v, _ := n.Attrs.Get("mathvariant"); v != "bold" {
		t.Errorf("element attributes changed through the caller's slice: %q", v)
	}
}

func TestSerialize(t *testing.T) {
	got := Serialize(sampleTree())
	want := `<math display="block"><mi>x</mi><mo>+</mo><mn>5</mn><msup><mi>y</mi><mn>2</mn></msup>` +
		`<mtext class="q&quot;x">a &lt; b &amp; "c"</mtext></math>`
	if got != want {
		t.Errorf("Serialize mismatch\n got: %s\nwant: %s", got, want)
	}
}

func TestSerializeOmitsComments(t *testing.T) {
	n := Mrow(nil, Comment("hidden"), Mi("x", nil), Comment("also hidden"))
	if got := n.String(); got != "<mrow><mi>x</mi></mrow>" {
		t.Errorf("expected comments to be omitted, got %s", got)
	}
}

func TestSerializeEmptyElement(t *testing.T) {
	if got := Mspace("0.167em").String(); got != `<mspace width="0.167em"/>` {
		t.Errorf("unexpected empty element form: %s", got)
	}
}

func TestWriteTo(t *testing.T) {
	var buf bytes.Buffer
	n, err := sampleTree().WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if int(n) != buf.Len() {
		t.Errorf("WriteTo reported %d bytes, wrote %d", n, buf.Len())
	}
	if buf.String() != Serialize(sampleTree()) {
		t.Error("WriteTo and Serialize disagree")
	}
}

func TestParseRoundTrip(t *testing.T) {
	trees := []*Node{
		sampleTree(),
		NewElement("math", nil, Mfrac(nil, Mrow(nil, Mi("a", nil), Mo("−", nil), Mi("b", nil)), Mn("2", nil))),
		NewElement("math", nil, Mtable(nil, Mtr(Mtd(Mn("1", nil)), Mtd(Mn("0", nil))), Mtr(Mtd(Mn("0", nil)), Mtd(Mn("1", nil))))),
		NewElement("math", nil, Mspace("1em"), Merror("bad")),
	}
	for _, tree := range trees {
		parsed, err := Parse(Serialize(tree))
		if err != nil {
			t.Fatalf("Parse(%s) failed: %v", Serialize(tree), err)
		}
		if !bytes.Equal(Canonicalize(parsed), Canonicalize(tree)) {
			t.Errorf("round trip changed the tree\n got: %s\nwant: %s", Canonicalize(parsed), Canonicalize(tree))
		}
	}
}

func TestParseMalformed(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"<mi>x",
		"<mi a=1>x</mi>",
	}
	for _, in := range inputs {
		n, err := Parse(in)
		if err == nil {
			t.Errorf("Parse(%q) expected an error, got tree %v", in, n)
			continue
		}
		if !errors.Is(err, ErrMarkupParse) {
			t.Errorf("Parse(%q) error %v does not match ErrMarkupParse", in, err)
		}
		var mpe *MarkupParseError
		if !errors.As(err, &mpe) {
			t.Errorf("Parse(%q) error is not a *MarkupParseError: %T", in, err)
		}
		if n != nil {
			t.Errorf("Parse(%q) returned a tree alongside an error", in)
		}
	}
}

func TestParseEntitiesAndNamespaces(t *testing.T) {
	n, err := Parse(`<m:math xmlns:m="http://www.w3.org/1998/Math/MathML"><m:mi>f</m:mi><m:mo>&ApplyFunction;</m:mo><m:mo>&lt;</m:mo></m:math>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if n.Tag != "m:math" {
		t.Errorf("expected qualified root tag, got %q", n.Tag)
	}
	if got := n.Children[1].TextContent(); got != "⁡" {
		t.Errorf("expected function application entity, got %q", got)
	}
	if got := n.Children[2].TextContent(); got != "<" {
		t.Errorf("expected '<', got %q", got)
	}
}

func TestParseFragmentAndInner(t *testing.T) {
	frag, err := ParseFragment("<mi>x</mi><!-- note --><mo>+</mo>")
	if err != nil {
		t.Fatalf("ParseFragment failed: %v", err)
	}
	if len(frag) != 3 {
		t.Fatalf("expected comment to survive parsing as a node, got %d nodes", len(frag))
	}
	if frag.String() != "<mi>x</mi><mo>+</mo>" {
		t.Errorf("unexpected fragment markup: %s", frag.String())
	}

	root, err := Parse(`<math xmlns="http://www.w3.org/1998/Math/MathML"><!-- c --><mi>x</mi></math>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	inner, err := InnerFragment(root)
	if err != nil {
		t.Fatalf("InnerFragment failed: %v", err)
	}
	if len(inner) != 1 || !inner[0].IsElement("mi") {
		t.Errorf("expected a single mi child, got %s", inner.String())
	}

	if _, err = InnerFragment(Mrow(nil)); !errors.Is(err, ErrMarkupParse) {
		t.Errorf("expected ErrMarkupParse for non-math root, got %v", err)
	}

	prefixed, err := Parse(`<m:math xmlns:m="http://www.w3.org/1998/Math/MathML"><m:mi>x</m:mi></m:math>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if inner, err = InnerFragment(prefixed); err != nil || len(inner) != 1 {
		t.Errorf("expected a prefixed math root to be accepted, got %v %v", inner, err)
	}
}

func TestSerializeReplacesIllegalCharacters(t *testing.T) {
	tests := []struct {
		name string
		tree *Node
		text string
	}{
		{"control character", Mtext("a\x01b", nil), "a\uFFFDb"},
		{"vertical tab", Mo("\x0b", nil), "\uFFFD"},
		{"invalid utf-8", Mtext("\xff", nil), "\uFFFD"},
		{"noncharacter", Mi("\uFFFE", nil), "\uFFFD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := Parse(Serialize(tt.tree))
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", Serialize(tt.tree), err)
			}
			if got := parsed.TextContent(); got != tt.text {
				t.Errorf("expected text %q, got %q", tt.text, got)
			}
		})
	}

	attr := Mi("x", Attrs("title", "a\x02b"))
	parsed, err := Parse(Serialize(attr))
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", Serialize(attr), err)
	}
	if got, _ := parsed.Attrs.Get("title"); got != "a\uFFFDb" {
		t.Errorf("expected the attribute to be cleaned, got %q", got)
	}
}

func TestCarriageReturnRoundTrips(t *testing.T) {
	trees := []*Node{
		Mi("x", Attrs("title", "a\rb", "alt", "c\r\nd")),
		Mtext("a\rb", nil),
	}
	for _, tree := range trees {
		parsed, err := Parse(Serialize(tree))
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", Serialize(tree), err)
		}
		if !Equal(parsed, tree) {
			t.Errorf("round trip changed %q into %q", Serialize(tree), Serialize(parsed))
		}
	}
}

func TestCanonicalIgnoresWhitespaceCommentsAndAttributeOrder(t *testing.T) {
	a, err := Parse(`<math>
	  <mi mathvariant="normal" class="c">x</mi>
	  <!-- operator -->
	  <mo> + </mo>
	  <mn>5</mn>
	</math>`)
	if err != nil {
		t.Fatalf("Parse a failed: %v", err)
	}
	b, err := Parse(`<math><mi class="c" mathvariant="normal">x</mi><mo>+</mo><mn>5</mn></math>`)
	if err != nil {
		t.Fatalf("Parse b failed: %v", err)
	}
	if !Equal(a, b) {
		t.Errorf("expected equal canonical forms\n a: %s\n b: %s", Canonicalize(a), Canonicalize(b))
	}
}

func TestCanonicalPreservesOrderAndAttributes(t *testing.T) {
	base := NewElement("math", nil, Mi("x", nil), Mo("+", nil))
	swapped := NewElement("math", nil, Mo("+", nil), Mi("x", nil))
	if Equal(base, swapped) {
		t.Error("child order must be significant")
	}
	extra := NewElement("math", nil, Mi("x", Attrs("mathvariant", "normal")), Mo("+", nil))
	if Equal(base, extra) {
		t.Error("attribute presence must be significant")
	}
}

func TestCanonicalMergesTextAcrossComments(t *testing.T) {
	a := Mtext("", nil)
	a.Children = []*Node{Text("ab"), Comment("x"), Text("c")}
	b := Mtext("abc", nil)
	if !Equal(a, b) {
		t.Errorf("expected text split by a comment to compare equal: %s vs %s", Canonicalize(a), Canonicalize(b))
	}
}

func TestCanonicalKeepsNoBreakSpace(t *testing.T) {
	a := Mtext("\u00a0", nil)
	b := Mtext("", nil)
	if Equal(a, b) {
		t.Error("a no-break space is content, not formatting whitespace")
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := sampleTree()
	c := orig.Clone()
	c.Children[0].Children[0].Data = "z"
	c.Attrs.Set("display", "inline")
	if strings.Contains(Serialize(orig), "<mi>z</mi>") {
		t.Error("mutating the clone changed the original's children")
	}
	if v, _ := orig.Attrs.Get("display"); v != "block" {
		t.Error("mutating the clone changed the original's attributes")
	}
}

func TestEqualFragments(t *testing.T) {
	a, _ := ParseFragment("<mi>x</mi> <mo>+</mo>")
	b := Fragment{Mi("x", nil), Mo("+", nil)}
	if !EqualFragments(a, b) {
		t.Errorf("expected fragments to be equal: %s vs %s", a.Canonical(), b.Canonical())
	}
}
