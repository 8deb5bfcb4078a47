package mml

import (
	"bytes"
	"slices"
	"strings"
)

// Canonicalize returns a byte form of n that is equal for two trees exactly
// when they are structurally equal. Comments are removed, whitespace-only
// text is dropped, remaining text is trimmed with inner whitespace runs
// collapsed, and attributes are written sorted by key. Element child order
// is preserved.
func Canonicalize(n *Node) []byte {
	var buf bytes.Buffer
	writeCanonical(&buf, n)
	return buf.Bytes()
}

// Canonical returns the canonical form of the whole fragment.
func (f Fragment) Canonical() []byte {
	var buf bytes.Buffer
	writeCanonicalChildren(&buf, f)
	return buf.Bytes()
}

// Equal reports whether two trees canonicalize identically.
func Equal(a, b *Node) bool {
	return bytes.Equal(Canonicalize(a), Canonicalize(b))
}

// EqualFragments reports whether two fragments canonicalize identically.
func EqualFragments(a, b Fragment) bool {
	return bytes.Equal(a.Canonical(), b.Canonical())
}

func writeCanonical(buf *bytes.Buffer, n *Node) {
	if n == nil || n.Kind != ElementNode {
		writeCanonicalChildren(buf, Fragment{n})
		return
	}
	buf.WriteByte('<')
	buf.WriteString(n.Tag)
	attrs := n.Attrs.Clone()
	slices.SortFunc(attrs, func(a, b Attr) int { return strings.Compare(a.Key, b.Key) })
	for _, a := range attrs {
		buf.WriteByte(' ')
		buf.WriteString(a.Key)
		buf.WriteString(`="`)
		_, _ = attrEscaper.WriteString(buf, a.Value)
		buf.WriteByte('"')
	}
	buf.WriteByte('>')
	writeCanonicalChildren(buf, n.Children)
	buf.WriteString("</")
	buf.WriteString(n.Tag)
	buf.WriteByte('>')
}

// writeCanonicalChildren merges text runs that only became adjacent because
// a comment between them was removed.
func writeCanonicalChildren(buf *bytes.Buffer, children []*Node) {
	var text strings.Builder
	flush := func() {
		if s := collapseSpace(text.String()); s != "" {
			_, _ = textEscaper.WriteString(buf, s)
		}
		text.Reset()
	}
	for _, c := range children {
		if c == nil {
			continue
		}
		switch c.Kind {
		case TextNode:
			text.WriteString(c.Data)
		case CommentNode:
		case ElementNode:
			flush()
			writeCanonical(buf, c)
		}
	}
	flush()
}

// collapseSpace only treats XML whitespace as space, so no-break and thin
// spaces inside tokens stay significant.
func collapseSpace(s string) string {
	return strings.Join(strings.FieldsFunc(s, isXMLSpace), " ")
}

func isXMLSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
