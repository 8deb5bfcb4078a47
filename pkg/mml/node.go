package mml

import "strings"

// Kind identifies what a Node represents.
type Kind int

const (
	// ElementNode is a tagged element with attributes and children.
	ElementNode Kind = iota
	// TextNode is character content. It has no tag and no children.
	TextNode
	// CommentNode is markup commentary. It is never serialized and is
	// ignored by canonical comparison.
	CommentNode
)

func (k Kind) String() string {
	switch k {
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	default:
		return "unknown"
	}
}

// Node is a single MathML tree node. A node exclusively owns its children;
// the same *Node must not be attached to two parents.
type Node struct {
	Kind     Kind
	Tag      string
	Attrs    Attributes
	Children []*Node
	Data     string // text or comment content
}

// NewElement creates an element node. It panics if tag is empty, since an
// element without a name can never serialize to valid markup.
func NewElement(tag string, attrs Attributes, children ...*Node) *Node {
	if tag == "" {
		panic("mml: element tag must not be empty")
	}
	n := &Node{Kind: ElementNode, Tag: tag, Attrs: attrs.Clone()}
	n.Append(children...)
	return n
}

// Text creates a text leaf.
func Text(data string) *Node {
	return &Node{Kind: TextNode, Data: data}
}

// Comment creates a comment node.
func Comment(data string) *Node {
	return &Node{Kind: CommentNode, Data: data}
}

// Append adds children to an element, skipping nil entries.
func (n *Node) Append(children ...*Node) *Node {
	for _, c := range children {
		if c != nil {
			n.Children = append(n.Children, c)
		}
	}
	return n
}

// SetAttr sets an attribute and returns the node for chaining.
func (n *Node) SetAttr(key, value string) *Node {
	n.Attrs.Set(key, value)
	return n
}

// IsElement reports whether n is an element with the given tag.
func (n *Node) IsElement(tag string) bool {
	return n != nil && n.Kind == ElementNode && n.Tag == tag
}

// TextContent returns the concatenated text of n and all its descendants.
func (n *Node) TextContent() string {
	var sb strings.Builder
	n.writeText(&sb)
	return sb.String()
}

func (n *Node) writeText(sb *strings.Builder) {
	switch n.Kind {
	case TextNode:
		sb.WriteString(n.Data)
	case ElementNode:
		for _, c := range n.Children {
			c.writeText(sb)
		}
	}
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Kind: n.Kind, Tag: n.Tag, Data: n.Data, Attrs: n.Attrs.Clone()}
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// Fragment is an ordered sequence of sibling nodes, such as the children of
// an implicit <math> root.
type Fragment []*Node

// Clone returns a deep copy of the fragment.
func (f Fragment) Clone() Fragment {
	out := make(Fragment, len(f))
	for i, n := range f {
		out[i] = n.Clone()
	}
	return out
}

// Wrap places the fragment under a new element, cloning nothing.
func (f Fragment) Wrap(tag string, attrs Attributes) *Node {
	return NewElement(tag, attrs, f...)
}
