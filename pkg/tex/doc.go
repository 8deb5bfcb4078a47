/*
Package tex parses the math-mode subset of TeX used in wiki formulas and
builds presentation MathML trees from it.

The parser covers identifiers, numbers, operators, groups, sub- and
superscripts, fractions, roots, stretchy fences, Greek letters, named
functions, big operators with limits, accents, spacing, text runs, font
commands and the common matrix environments. Macro definitions are not
expanded. Unknown control sequences are reported as a *SyntaxError carrying
the byte offset of the offending token, so callers can render a diagnostic
instead of markup.
*/
package tex
