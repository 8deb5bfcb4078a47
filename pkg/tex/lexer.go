package tex

import (
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/CTAG07/texmml/pkg/mml"
)

// TokenKind classifies a lexical token.
type TokenKind int

const (
	TokLetter     TokenKind = iota // a single letter
	TokNumber                      // digits with an optional decimal part
	TokCommand                     // a control sequence; Text holds its name without the backslash
	TokChar                        // any other single character
	TokBeginGroup                  // {
	TokEndGroup                    // }
	TokSup                         // ^
	TokSub                         // _
	TokAlign                       // &
)

// Token is a single lexical unit of TeX input.
type Token struct {
	Kind   TokenKind
	Text   string
	Offset int
}

// Lexer splits math-mode TeX into tokens. Whitespace between tokens and
// %-comments are skipped.
type Lexer struct {
	src string
	pos int
}

// NewLexer returns a lexer over the NFC normalization of src, so that
// precomposed and decomposed spellings of the same formula lex identically.
func NewLexer(src string) *Lexer {
	return &Lexer{src: norm.NFC.String(src)}
}

// Source returns the normalized input the lexer reads from.
func (l *Lexer) Source() string {
	return l.src
}

// Next returns the next token. When the input is exhausted, it returns a nil
// Token and io.EOF.
func (l *Lexer) Next() (*Token, error) {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return nil, io.EOF
	}
	start := l.pos
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	if err := checkRune(r, size, start); err != nil {
		return nil, err
	}
	l.pos += size

	switch {
	case r == '\\':
		return l.command(start)
	case r == '{':
		return &Token{Kind: TokBeginGroup, Text: "{", Offset: start}, nil
	case r == '}':
		return &Token{Kind: TokEndGroup, Text: "}", Offset: start}, nil
	case r == '^':
		return &Token{Kind: TokSup, Text: "^", Offset: start}, nil
	case r == '_':
		return &Token{Kind: TokSub, Text: "_", Offset: start}, nil
	case r == '&':
		return &Token{Kind: TokAlign, Text: "&", Offset: start}, nil
	case isDigit(r):
		return l.number(start), nil
	case unicode.IsLetter(r):
		return &Token{Kind: TokLetter, Text: string(r), Offset: start}, nil
	default:
		return &Token{Kind: TokChar, Text: string(r), Offset: start}, nil
	}
}

func (l *Lexer) command(start int) (*Token, error) {
	if l.pos >= len(l.src) {
		return nil, &SyntaxError{Offset: start, Msg: "trailing backslash"}
	}
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	if !isASCIILetter(r) {
		if err := checkRune(r, size, l.pos); err != nil {
			return nil, err
		}
		l.pos += size
		return &Token{Kind: TokCommand, Text: string(r), Offset: start}, nil
	}
	end := l.pos
	for end < len(l.src) && isASCIILetter(rune(l.src[end])) {
		end++
	}
	name := l.src[l.pos:end]
	l.pos = end
	return &Token{Kind: TokCommand, Text: name, Offset: start}, nil
}

func (l *Lexer) number(start int) *Token {
	end := l.pos
	for end < len(l.src) && isDigit(rune(l.src[end])) {
		end++
	}
	if end+1 < len(l.src) && l.src[end] == '.' && isDigit(rune(l.src[end+1])) {
		end++
		for end < len(l.src) && isDigit(rune(l.src[end])) {
			end++
		}
	}
	l.pos = end
	return &Token{Kind: TokNumber, Text: l.src[start:end], Offset: start}
}

// RawGroup reads a brace-delimited argument verbatim, as \text and \begin
// need it. Leading whitespace is skipped; nested braces must balance.
func (l *Lexer) RawGroup() (string, int, error) {
	l.skipSpace()
	start := l.pos
	if l.pos >= len(l.src) || l.src[l.pos] != '{' {
		return "", start, &SyntaxError{Offset: start, Msg: "expected {"}
	}
	depth := 0
	for i := l.pos; i < len(l.src); i++ {
		switch l.src[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				body := l.src[start+1 : i]
				if err := checkText(body, start+1); err != nil {
					return "", start, err
				}
				l.pos = i + 1
				return body, start, nil
			}
		}
	}
	return "", start, &SyntaxError{Offset: start, Msg: "missing }"}
}

// Accept consumes c if it is the next non-space byte of input.
func (l *Lexer) Accept(c byte) bool {
	l.skipSpace()
	if l.pos < len(l.src) && l.src[l.pos] == c {
		l.pos++
		return true
	}
	return false
}

func (l *Lexer) skipSpace() {
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		switch {
		case r == '%':
			if nl := strings.IndexByte(l.src[l.pos:], '\n'); nl >= 0 {
				l.pos += nl + 1
			} else {
				l.pos = len(l.src)
			}
		case unicode.IsSpace(r):
			l.pos += size
		default:
			return
		}
	}
}

// checkRune rejects input that cannot be carried into markup.
func checkRune(r rune, size, offset int) error {
	if r == utf8.RuneError && size == 1 {
		return &SyntaxError{Offset: offset, Msg: "invalid UTF-8"}
	}
	if !mml.IsXMLChar(r) {
		return &SyntaxError{Offset: offset, Msg: fmt.Sprintf("illegal character U+%04X", r)}
	}
	return nil
}

func checkText(s string, offset int) error {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if err := checkRune(r, size, offset+i); err != nil {
			return err
		}
		i += size
	}
	return nil
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isASCIILetter(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}
