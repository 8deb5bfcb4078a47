/*
Package mml provides a small, owned tree model for MathML markup.

A Node is either an element (a tag, an ordered set of attributes and ordered
children), a text leaf, or a comment. Trees can be serialized back to
markup, parsed from markup, and reduced to a canonical byte form that
ignores whitespace and comments so that two independently produced
fragments can be compared structurally.

The package does not validate against the MathML schema; any well-formed
element tree is accepted.
*/
package mml
