// Package variant translates characters into their Unicode mathematical
// alphanumeric forms (bold, italic, double-struck, fraktur, ...) and keeps
// the mathvariant attribute of translated tokens consistent.
package variant

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/CTAG07/texmml/pkg/mml"
)

// Attribute is the MathML attribute carrying a token's style.
const Attribute = "mathvariant"

// ErrUnknownStyle is matched by every UnknownStyleError.
var ErrUnknownStyle = errors.New("variant: unknown style")

// UnknownStyleError reports a style name that is not a mathvariant value.
type UnknownStyleError struct {
	Style string
}

func (e *UnknownStyleError) Error() string {
	return fmt.Sprintf("variant: unknown style %q", e.Style)
}

func (e *UnknownStyleError) Is(target error) bool {
	return target == ErrUnknownStyle
}

// Styles returns the recognized style names.
func Styles() []string {
	return slices.Clone(styleOrder)
}

// IsStyle reports whether name is a recognized style.
func IsStyle(name string) bool {
	_, ok := mappings()[name]
	return ok
}

// Translate maps every code point of text to its form in the given style.
// Code points the style has no form for are kept unchanged. An unrecognized
// style is an error regardless of text.
func Translate(text, style string) (string, error) {
	m, ok := mappings()[style]
	if !ok {
		return "", &UnknownStyleError{Style: style}
	}
	if len(m) == 0 {
		return text, nil
	}
	var sb strings.Builder
	sb.Grow(len(text) * 4)
	for _, r := range text {
		if mapped, ok := m[r]; ok {
			r = mapped
		}
		sb.WriteRune(r)
	}
	return sb.String(), nil
}

// MustTranslate is like Translate but panics on an unknown style. It is
// meant for style names that are compile-time constants.
func MustTranslate(text, style string) string {
	s, err := Translate(text, style)
	if err != nil {
		panic(err)
	}
	return s
}

// RemoveVariantAttribute drops a mathvariant attribute once its style has
// been baked into the characters. An explicit "normal" is kept because it
// overrides the italic default of single-letter identifiers.
func RemoveVariantAttribute(attrs *mml.Attributes) {
	v, ok := attrs.Get(Attribute)
	if !ok || v == Normal {
		return
	}
	attrs.Delete(Attribute)
}

// Apply translates the text content of a token element into its
// mathvariant style and removes the attribute. Tokens without the
// attribute, or with "normal", are left as they are.
func Apply(n *mml.Node) error {
	style, ok := n.Attrs.Get(Attribute)
	if !ok || style == Normal {
		return nil
	}
	if err := translateText(n, style); err != nil {
		return err
	}
	RemoveVariantAttribute(&n.Attrs)
	return nil
}

func translateText(n *mml.Node, style string) error {
	for _, c := range n.Children {
		switch c.Kind {
		case mml.TextNode:
			s, err := Translate(c.Data, style)
			if err != nil {
				return err
			}
			c.Data = s
		case mml.ElementNode:
			if err := translateText(c, style); err != nil {
				return err
			}
		}
	}
	return nil
}
