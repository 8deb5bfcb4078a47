package mml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// ErrMarkupParse is matched by every MarkupParseError.
var ErrMarkupParse = errors.New("mml: malformed markup")

// MarkupParseError reports markup that could not be turned into a tree.
type MarkupParseError struct {
	Reason string
	Err    error
}

func (e *MarkupParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mml: %s: %v", e.Reason, e.Err)
	}
	return "mml: " + e.Reason
}

func (e *MarkupParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMarkupParse, e.Err}
	}
	return []error{ErrMarkupParse}
}

// entities extends the HTML entity set with the invisible MathML operators
// that show up in rendered fragments.
var entities = func() map[string]string {
	m := make(map[string]string, len(xml.HTMLEntity)+4)
	for k, v := range xml.HTMLEntity {
		m[k] = v
	}
	m["InvisibleTimes"] = "⁢"
	m["ApplyFunction"] = "⁡"
	m["InvisibleComma"] = "⁣"
	m["it"] = "⁢"
	m["af"] = "⁡"
	return m
}()

// Parse reads a single-rooted markup document into a tree. Comments are
// kept as CommentNode children; processing instructions and directives are
// dropped.
func Parse(markup string) (*Node, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Entity = entities
	if err := doc.ReadFromString(markup); err != nil {
		return nil, &MarkupParseError{Reason: "cannot parse markup", Err: err}
	}
	root := doc.Root()
	if root == nil {
		return nil, &MarkupParseError{Reason: "document has no root element"}
	}
	return fromElement(root), nil
}

// ParseFragment parses markup that is the content of a <math> element,
// such as the output of Fragment.String, and returns the top-level nodes.
func ParseFragment(markup string) (Fragment, error) {
	root, err := Parse(`<math xmlns="` + Namespace + `">` + markup + `</math>`)
	if err != nil {
		return nil, err
	}
	return Fragment(root.Children), nil
}

// InnerFragment returns the children of a <math> root element, with
// comments removed. It fails when root is not a math element; a namespace
// prefix on the root, as in <m:math>, is ignored.
func InnerFragment(root *Node) (Fragment, error) {
	if root == nil || root.Kind != ElementNode || localName(root.Tag) != "math" {
		tag := ""
		if root != nil {
			tag = root.Tag
		}
		return nil, &MarkupParseError{Reason: fmt.Sprintf("root element is %q, not math", tag)}
	}
	out := make(Fragment, 0, len(root.Children))
	for _, c := range root.Children {
		if c.Kind == CommentNode {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func localName(tag string) string {
	if i := strings.LastIndexByte(tag, ':'); i >= 0 {
		return tag[i+1:]
	}
	return tag
}

func qualified(space, local string) string {
	if space == "" {
		return local
	}
	return space + ":" + local
}

func fromElement(e *etree.Element) *Node {
	n := &Node{Kind: ElementNode, Tag: qualified(e.Space, e.Tag)}
	for _, a := range e.Attr {
		n.Attrs.Set(qualified(a.Space, a.Key), a.Value)
	}
	for _, tok := range e.Child {
		switch t := tok.(type) {
		case *etree.Element:
			n.Children = append(n.Children, fromElement(t))
		case *etree.CharData:
			// Adjacent character runs are merged so that entity splits
			// do not change the tree shape.
			if last := len(n.Children) - 1; last >= 0 && n.Children[last].Kind == TextNode {
				n.Children[last].Data += t.Data
				continue
			}
			n.Children = append(n.Children, Text(t.Data))
		case *etree.Comment:
			n.Children = append(n.Children, Comment(t.Data))
		}
	}
	return n
}
