package mml

import (
	"bufio"
	"io"
	"strings"
	"unicode/utf8"
)

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\r", "&#xD;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "\n", "&#xA;", "\r", "&#xD;", "\t", "&#x9;")
)

// IsXMLChar reports whether r may appear in an XML 1.0 document.
func IsXMLChar(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	}
	return r >= 0x10000 && r <= utf8.MaxRune
}

// xmlSafe replaces malformed UTF-8 and characters XML forbids with U+FFFD.
func xmlSafe(s string) string {
	if utf8.ValidString(s) && strings.IndexFunc(s, func(r rune) bool { return !IsXMLChar(r) }) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if IsXMLChar(r) {
			return r
		}
		return utf8.RuneError
	}, s)
}

// Serialize returns the markup for n. Comments are omitted, and text that XML
// cannot carry is replaced with U+FFFD.
func Serialize(n *Node) string {
	var sb strings.Builder
	writeNode(&sb, n)
	return sb.String()
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	return Serialize(n)
}

// WriteTo writes the markup for n to w.
func (n *Node) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	cw := &countWriter{w: bw}
	writeNode(cw, n)
	if err := bw.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, cw.err
}

// String serializes every node in order.
func (f Fragment) String() string {
	var sb strings.Builder
	for _, n := range f {
		writeNode(&sb, n)
	}
	return sb.String()
}

type markupWriter interface {
	io.Writer
	io.StringWriter
}

func writeNode(w markupWriter, n *Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case TextNode:
		_, _ = textEscaper.WriteString(w, xmlSafe(n.Data))
	case CommentNode:
		// Comments never reach emitted markup.
	case ElementNode:
		_, _ = w.WriteString("<")
		_, _ = w.WriteString(n.Tag)
		for _, a := range n.Attrs {
			_, _ = w.WriteString(" ")
			_, _ = w.WriteString(a.Key)
			_, _ = w.WriteString(`="`)
			_, _ = attrEscaper.WriteString(w, xmlSafe(a.Value))
			_, _ = w.WriteString(`"`)
		}
		if len(n.Children) == 0 {
			_, _ = w.WriteString("/>")
			return
		}
		_, _ = w.WriteString(">")
		for _, c := range n.Children {
			writeNode(w, c)
		}
		_, _ = w.WriteString("</")
		_, _ = w.WriteString(n.Tag)
		_, _ = w.WriteString(">")
	}
}

type countWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (c *countWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}

func (c *countWriter) WriteString(s string) (int, error) {
	return c.Write([]byte(s))
}
