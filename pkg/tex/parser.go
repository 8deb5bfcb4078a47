package tex

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/CTAG07/texmml/pkg/mml"
	"github.com/CTAG07/texmml/pkg/variant"
)

const applyFunction = "\u2061"

// Parser turns TeX source into MathML fragments. A Parser holds only its
// configuration, so one value can be shared by concurrent callers.
type Parser struct {
	cfg Config
}

// NewParser creates a parser. Zero or invalid limits in cfg fall back to the
// values of DefaultConfig, and any display other than inline means block.
func NewParser(cfg Config) *Parser {
	def := DefaultConfig()
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = def.MaxLength
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.Display != DisplayInline {
		cfg.Display = DisplayBlock
	}
	return &Parser{cfg: cfg}
}

// Config returns the effective configuration of the parser.
func (p *Parser) Config() Config {
	return p.cfg
}

var defaultParser = NewParser(DefaultConfig())

// Parse parses src with the default configuration.
func Parse(src string) (mml.Fragment, error) {
	return defaultParser.Parse(src)
}

// Parse converts src into the top-level nodes of a <math> element. Errors
// are always a *SyntaxError.
func (p *Parser) Parse(src string) (mml.Fragment, error) {
	if len(src) > p.cfg.MaxLength {
		return nil, &SyntaxError{Offset: p.cfg.MaxLength, Msg: fmt.Sprintf("input longer than %d bytes", p.cfg.MaxLength)}
	}
	st := &state{lex: NewLexer(src), cfg: p.cfg}
	nodes, err := st.expr(stopNever)
	if err != nil {
		return nil, err
	}
	return mml.Fragment(nodes), nil
}

type limitMode int

const (
	limitsScripts limitMode = iota // always sub- and superscripts
	limitsDisplay                  // under and over in block display
	limitsAlways                   // always under and over
)

type atomInfo struct {
	fn     bool // follow the atom with a function application
	limits limitMode
}

type stopFunc func(*Token) bool

func stopNever(*Token) bool { return false }

func isGroupEnd(t *Token) bool { return t.Kind == TokEndGroup }

func isCommand(t *Token, names ...string) bool {
	return t != nil && t.Kind == TokCommand && slices.Contains(names, t.Text)
}

func isChar(t *Token, c string) bool {
	return t != nil && t.Kind == TokChar && t.Text == c
}

func describe(t *Token) string {
	if t.Kind == TokCommand {
		return `\` + t.Text
	}
	return t.Text
}

// row collapses a single node and wraps anything else in an <mrow>.
func row(nodes []*mml.Node) *mml.Node {
	if len(nodes) == 1 {
		return nodes[0]
	}
	return mml.Mrow(nil, nodes...)
}

func fenceAttrs() mml.Attributes {
	return mml.Attrs("fence", "true", "stretchy", "true")
}

// state is the per-call parsing state with one token of lookahead.
type state struct {
	lex    *Lexer
	cfg    Config
	tok    *Token
	peeked bool
	depth  int
}

// peek returns the next token without consuming it, or nil at end of input.
func (s *state) peek() (*Token, error) {
	if !s.peeked {
		t, err := s.lex.Next()
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		s.tok, s.peeked = t, true
	}
	return s.tok, nil
}

func (s *state) next() (*Token, error) {
	t, err := s.peek()
	if err != nil {
		return nil, err
	}
	s.tok, s.peeked = nil, false
	return t, nil
}

// pushBack makes t the next token. It is only valid directly after next.
func (s *state) pushBack(t *Token) {
	s.tok, s.peeked = t, true
}

func (s *state) errorf(t *Token, format string, args ...any) error {
	offset := len(s.lex.Source())
	if t != nil {
		offset = t.Offset
	}
	return &SyntaxError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

func (s *state) enter(t *Token) error {
	s.depth++
	if s.depth > s.cfg.MaxDepth {
		return s.errorf(t, "nesting deeper than %d levels", s.cfg.MaxDepth)
	}
	return nil
}

func (s *state) leave() {
	s.depth--
}

// expr parses atoms until stop matches the lookahead or input ends. The
// stopping token is left unconsumed.
func (s *state) expr(stop stopFunc) ([]*mml.Node, error) {
	var out []*mml.Node
	for {
		t, err := s.peek()
		if err != nil {
			return nil, err
		}
		if t == nil || stop(t) {
			return out, nil
		}
		switch {
		case t.Kind == TokEndGroup:
			return nil, s.errorf(t, "unexpected }")
		case t.Kind == TokAlign:
			return nil, s.errorf(t, "misplaced &")
		case isCommand(t, `\`):
			return nil, s.errorf(t, `misplaced \\`)
		case t.Kind == TokCommand && styleCommands[t.Text] != nil:
			_, _ = s.next()
			if err := s.enter(t); err != nil {
				return nil, err
			}
			rest, err := s.expr(stop)
			s.leave()
			if err != nil {
				return nil, err
			}
			return append(out, mml.Mstyle(mml.Attrs(styleCommands[t.Text]...), rest...)), nil
		}
		nodes, err := s.atom()
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
}

func (s *state) atom() ([]*mml.Node, error) {
	base, info, err := s.primary(false)
	if err != nil {
		return nil, err
	}
	n, err := s.scripts(base, info)
	if err != nil {
		return nil, err
	}
	if info.fn {
		return []*mml.Node{n, mml.Mo(applyFunction, nil)}, nil
	}
	return []*mml.Node{n}, nil
}

func isScriptToken(t *Token) bool {
	return t.Kind == TokSup || t.Kind == TokSub || isChar(t, "'") || isCommand(t, "limits", "nolimits")
}

// scripts attaches any following primes, subscript and superscript to base.
func (s *state) scripts(base *mml.Node, info atomInfo) (*mml.Node, error) {
	var sub, sup *mml.Node
	primes := 0
	for {
		t, err := s.peek()
		if err != nil {
			return nil, err
		}
		if t == nil || !isScriptToken(t) {
			break
		}
		_, _ = s.next()
		switch {
		case isCommand(t, "limits"):
			info.limits = limitsAlways
		case isCommand(t, "nolimits"):
			info.limits = limitsScripts
		case t.Kind == TokSub:
			if sub != nil {
				return nil, s.errorf(t, "double subscript")
			}
			if sub, err = s.arg(t); err != nil {
				return nil, err
			}
		default:
			if sup != nil {
				return nil, s.errorf(t, "double superscript")
			}
			if t.Kind == TokChar {
				primes++
				continue
			}
			if sup, err = s.arg(t); err != nil {
				return nil, err
			}
		}
	}

	if primes > 0 {
		p := mml.Mo(strings.Repeat("′", primes), nil)
		if sup == nil {
			sup = p
		} else {
			sup = mml.Mrow(nil, p, sup)
		}
	}
	if sub == nil && sup == nil {
		return base, nil
	}

	under := info.limits == limitsAlways || info.limits == limitsDisplay && s.cfg.Display == DisplayBlock
	switch {
	case under && sub != nil && sup != nil:
		return mml.Munderover(nil, base, sub, sup), nil
	case under && sub != nil:
		return mml.Munder(nil, base, sub), nil
	case under:
		return mml.Mover(nil, base, sup), nil
	case sub != nil && sup != nil:
		return mml.Msubsup(base, sub, sup), nil
	case sub != nil:
		return mml.Msub(base, sub), nil
	default:
		return mml.Msup(base, sup), nil
	}
}

// arg parses the single argument of a command or script: a braced group or
// one token.
func (s *state) arg(owner *Token) (*mml.Node, error) {
	t, err := s.peek()
	if err != nil {
		return nil, err
	}
	if t == nil || t.Kind == TokEndGroup || t.Kind == TokAlign || t.Kind == TokSup || t.Kind == TokSub {
		return nil, s.errorf(t, "missing argument for %s", describe(owner))
	}
	// A braced argument is counted by group.
	if t.Kind != TokBeginGroup {
		if err := s.enter(owner); err != nil {
			return nil, err
		}
		defer s.leave()
	}
	n, _, err := s.primary(true)
	return n, err
}

// primary parses one atom without its scripts. With single set, a number
// token only contributes its first digit, as in x^12.
func (s *state) primary(single bool) (*mml.Node, atomInfo, error) {
	t, err := s.peek()
	if err != nil {
		return nil, atomInfo{}, err
	}
	if t == nil {
		return nil, atomInfo{}, s.errorf(nil, "unexpected end of input")
	}
	if t.Kind == TokSup || t.Kind == TokSub {
		return mml.Mrow(nil), atomInfo{}, nil
	}
	_, _ = s.next()

	switch t.Kind {
	case TokLetter:
		return mml.Mi(t.Text, nil), atomInfo{}, nil
	case TokNumber:
		if single && len(t.Text) > 1 {
			s.pushBack(&Token{Kind: TokNumber, Text: t.Text[1:], Offset: t.Offset + 1})
			return mml.Mn(t.Text[:1], nil), atomInfo{}, nil
		}
		return mml.Mn(t.Text, nil), atomInfo{}, nil
	case TokBeginGroup:
		n, err := s.group(t)
		return n, atomInfo{}, err
	case TokChar:
		if t.Text == "~" {
			return mml.Mtext("\u00a0", nil), atomInfo{}, nil
		}
		if op, ok := charOperators[t.Text]; ok {
			return mml.Mo(op, nil), atomInfo{}, nil
		}
		return mml.Mo(t.Text, nil), atomInfo{}, nil
	case TokCommand:
		return s.command(t)
	case TokEndGroup:
		return nil, atomInfo{}, s.errorf(t, "unexpected }")
	default:
		return nil, atomInfo{}, s.errorf(t, "misplaced %s", t.Text)
	}
}

func (s *state) group(open *Token) (*mml.Node, error) {
	if err := s.enter(open); err != nil {
		return nil, err
	}
	defer s.leave()
	nodes, err := s.expr(isGroupEnd)
	if err != nil {
		return nil, err
	}
	t, err := s.next()
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, s.errorf(open, "missing }")
	}
	return row(nodes), nil
}

func (s *state) command(t *Token) (*mml.Node, atomInfo, error) {
	name := t.Text
	if v, ok := identifiers[name]; ok {
		if uprightIdentifiers[name] {
			return mml.Mi(v, mml.Attrs(variant.Attribute, variant.Normal)), atomInfo{}, nil
		}
		return mml.Mi(v, nil), atomInfo{}, nil
	}
	if v, ok := operators[name]; ok {
		return mml.Mo(v, nil), atomInfo{}, nil
	}
	if v, ok := bigOperators[name]; ok {
		return mml.Mo(v, nil), atomInfo{limits: limitsDisplay}, nil
	}
	if v, ok := integrals[name]; ok {
		return mml.Mo(v, nil), atomInfo{}, nil
	}
	if functions[name] {
		return mml.Mi(name, nil), atomInfo{fn: true}, nil
	}
	if v, ok := limitFunctions[name]; ok {
		return mml.Mi(v, nil), atomInfo{fn: true, limits: limitsDisplay}, nil
	}
	if w, ok := spaces[name]; ok {
		return mml.Mspace(w), atomInfo{}, nil
	}
	if v, ok := escapes[name]; ok {
		return mml.Mo(v, nil), atomInfo{}, nil
	}
	if style, ok := fonts[name]; ok {
		n, err := s.font(t, style)
		return n, atomInfo{}, err
	}
	if a, ok := accents[name]; ok {
		base, err := s.arg(t)
		if err != nil {
			return nil, atomInfo{}, err
		}
		attrs := mml.Attrs("stretchy", "false")
		if a.stretch {
			attrs = mml.Attrs("stretchy", "true")
		}
		return mml.Mover(mml.Attrs("accent", "true"), base, mml.Mo(a.mark, attrs)), atomInfo{}, nil
	}
	if mark, ok := underAccents[name]; ok {
		base, err := s.arg(t)
		if err != nil {
			return nil, atomInfo{}, err
		}
		return mml.Munder(mml.Attrs("accentunder", "true"), base, mml.Mo(mark, mml.Attrs("stretchy", "true"))), atomInfo{}, nil
	}
	if b, ok := braces[name]; ok {
		base, err := s.arg(t)
		if err != nil {
			return nil, atomInfo{}, err
		}
		mark := mml.Mo(b.mark, mml.Attrs("stretchy", "true"))
		if b.under {
			return mml.Munder(nil, base, mark), atomInfo{limits: limitsAlways}, nil
		}
		return mml.Mover(nil, base, mark), atomInfo{limits: limitsAlways}, nil
	}
	if textCommands[name] {
		raw, _, err := s.lex.RawGroup()
		if err != nil {
			return nil, atomInfo{}, err
		}
		return mml.Mtext(raw, nil), atomInfo{}, nil
	}
	if size, ok := bigSizes[name]; ok {
		d, err := s.delimiter(t)
		if err != nil {
			return nil, atomInfo{}, err
		}
		return mml.Mo(d, mml.Attrs("minsize", size, "maxsize", size)), atomInfo{}, nil
	}

	switch name {
	case "frac", "dfrac", "tfrac", "cfrac":
		return s.fraction(t, nil)
	case "binom", "dbinom", "tbinom":
		n, _, err := s.fraction(t, mml.Attrs("linethickness", "0"))
		if err != nil {
			return nil, atomInfo{}, err
		}
		return mml.Mrow(nil, mml.Mo("(", nil), n, mml.Mo(")", nil)), atomInfo{}, nil
	case "sqrt":
		return s.root(t)
	case "left":
		return s.leftRight(t)
	case "middle":
		d, err := s.delimiter(t)
		if err != nil {
			return nil, atomInfo{}, err
		}
		return mml.Mo(d, mml.Attrs("stretchy", "true")), atomInfo{}, nil
	case "operatorname":
		return s.operatorName(t)
	case "not":
		return s.negation(t)
	case "begin":
		return s.environment(t)
	case "right":
		return nil, atomInfo{}, s.errorf(t, `\right without \left`)
	case "end":
		return nil, atomInfo{}, s.errorf(t, `\end without \begin`)
	case "limits", "nolimits":
		return nil, atomInfo{}, s.errorf(t, `\%s must follow a math operator`, name)
	}
	if styleCommands[name] != nil {
		return nil, atomInfo{}, s.errorf(t, `misplaced \%s`, name)
	}
	return nil, atomInfo{}, s.errorf(t, `undefined control sequence \%s`, name)
}

func (s *state) font(t *Token, style string) (*mml.Node, error) {
	n, err := s.arg(t)
	if err != nil {
		return nil, err
	}
	if err := applyFont(n, style); err != nil {
		return nil, s.errorf(t, "%v", err)
	}
	return n, nil
}

// applyFont bakes style into every identifier and number below n.
func applyFont(n *mml.Node, style string) error {
	if n.Kind != mml.ElementNode {
		return nil
	}
	switch n.Tag {
	case "mi", "mn":
		if style == variant.Normal {
			if n.Tag == "mi" && utf8.RuneCountInString(n.TextContent()) == 1 {
				n.SetAttr(variant.Attribute, variant.Normal)
			}
			return nil
		}
		n.SetAttr(variant.Attribute, style)
		return variant.Apply(n)
	case "mo", "mtext", "mspace":
		return nil
	}
	for _, c := range n.Children {
		if err := applyFont(c, style); err != nil {
			return err
		}
	}
	return nil
}

func (s *state) fraction(t *Token, attrs mml.Attributes) (*mml.Node, atomInfo, error) {
	num, err := s.arg(t)
	if err != nil {
		return nil, atomInfo{}, err
	}
	den, err := s.arg(t)
	if err != nil {
		return nil, atomInfo{}, err
	}
	f := mml.Mfrac(attrs, num, den)
	switch t.Text {
	case "dfrac", "cfrac", "dbinom":
		f = mml.Mstyle(mml.Attrs("displaystyle", "true", "scriptlevel", "0"), f)
	case "tfrac", "tbinom":
		f = mml.Mstyle(mml.Attrs("displaystyle", "false", "scriptlevel", "0"), f)
	}
	return f, atomInfo{}, nil
}

func (s *state) root(t *Token) (*mml.Node, atomInfo, error) {
	open, err := s.peek()
	if err != nil {
		return nil, atomInfo{}, err
	}
	var index *mml.Node
	if isChar(open, "[") {
		_, _ = s.next()
		if err := s.enter(open); err != nil {
			return nil, atomInfo{}, err
		}
		nodes, err := s.expr(func(tok *Token) bool { return isChar(tok, "]") })
		s.leave()
		if err != nil {
			return nil, atomInfo{}, err
		}
		if closing, err := s.next(); err != nil {
			return nil, atomInfo{}, err
		} else if closing == nil {
			return nil, atomInfo{}, s.errorf(open, "missing ]")
		}
		index = row(nodes)
	}
	base, err := s.arg(t)
	if err != nil {
		return nil, atomInfo{}, err
	}
	if index != nil {
		return mml.Mroot(base, index), atomInfo{}, nil
	}
	return mml.Msqrt(base), atomInfo{}, nil
}

func (s *state) delimiter(owner *Token) (string, error) {
	t, err := s.next()
	if err != nil {
		return "", err
	}
	if t == nil {
		return "", s.errorf(nil, "missing delimiter after %s", describe(owner))
	}
	d, ok := delimiters[describe(t)]
	if !ok {
		return "", s.errorf(t, "invalid delimiter %s after %s", describe(t), describe(owner))
	}
	return d, nil
}

func (s *state) leftRight(left *Token) (*mml.Node, atomInfo, error) {
	open, err := s.delimiter(left)
	if err != nil {
		return nil, atomInfo{}, err
	}
	if err := s.enter(left); err != nil {
		return nil, atomInfo{}, err
	}
	defer s.leave()

	body, err := s.expr(func(t *Token) bool { return isCommand(t, "right") || t.Kind == TokEndGroup })
	if err != nil {
		return nil, atomInfo{}, err
	}
	right, err := s.next()
	if err != nil {
		return nil, atomInfo{}, err
	}
	if !isCommand(right, "right") {
		return nil, atomInfo{}, s.errorf(left, `missing \right`)
	}
	closing, err := s.delimiter(right)
	if err != nil {
		return nil, atomInfo{}, err
	}

	r := mml.Mrow(nil)
	if open != "" {
		r.Append(mml.Mo(open, fenceAttrs()))
	}
	r.Append(body...)
	if closing != "" {
		r.Append(mml.Mo(closing, fenceAttrs()))
	}
	return r, atomInfo{}, nil
}

func (s *state) operatorName(t *Token) (*mml.Node, atomInfo, error) {
	info := atomInfo{fn: true}
	if s.lex.Accept('*') {
		info.limits = limitsDisplay
	}
	raw, _, err := s.lex.RawGroup()
	if err != nil {
		return nil, atomInfo{}, err
	}
	name := strings.TrimSpace(raw)
	if name == "" {
		return nil, atomInfo{}, s.errorf(t, `empty \operatorname`)
	}
	mi := mml.Mi(name, nil)
	if utf8.RuneCountInString(name) == 1 {
		mi.SetAttr(variant.Attribute, variant.Normal)
	}
	return mi, info, nil
}

// negation overlays a long solidus on the following operator, composing it
// where Unicode has a precomposed form (\not= becomes ≠).
func (s *state) negation(t *Token) (*mml.Node, atomInfo, error) {
	n, err := s.arg(t)
	if err != nil {
		return nil, atomInfo{}, err
	}
	if !n.IsElement("mo") && !n.IsElement("mi") {
		return nil, atomInfo{}, s.errorf(t, `\not must precede a symbol`)
	}
	return mml.Mo(norm.NFC.String(n.TextContent()+"\u0338"), nil), atomInfo{}, nil
}

var environments = map[string]bool{
	"cases": true, "aligned": true, "align": true, "align*": true,
	"split": true, "gathered": true, "array": true,
}

func (s *state) environment(begin *Token) (*mml.Node, atomInfo, error) {
	raw, offset, err := s.lex.RawGroup()
	if err != nil {
		return nil, atomInfo{}, err
	}
	name := strings.TrimSpace(raw)
	fences, isMatrix := matrixFences[name]
	if !isMatrix && !environments[name] {
		return nil, atomInfo{}, &SyntaxError{Offset: offset, Msg: fmt.Sprintf("unknown environment %q", name)}
	}
	var align string
	if name == "array" {
		spec, _, err := s.lex.RawGroup()
		if err != nil {
			return nil, atomInfo{}, err
		}
		align = columnAlign(spec)
	}

	if err := s.enter(begin); err != nil {
		return nil, atomInfo{}, err
	}
	defer s.leave()
	rows, err := s.rows(begin, name)
	if err != nil {
		return nil, atomInfo{}, err
	}
	table := mml.Mtable(nil, rows...)

	switch {
	case isMatrix:
		if fences.open == "" {
			return table, atomInfo{}, nil
		}
		return mml.Mrow(nil, mml.Mo(fences.open, fenceAttrs()), table, mml.Mo(fences.close, fenceAttrs())), atomInfo{}, nil
	case name == "cases":
		table.SetAttr("columnalign", "left left")
		return mml.Mrow(nil, mml.Mo("{", fenceAttrs()), table), atomInfo{}, nil
	case name == "gathered":
		table.SetAttr("displaystyle", "true")
	case name == "array":
		if align != "" {
			table.SetAttr("columnalign", align)
		}
	default:
		table.SetAttr("columnalign", "right left")
		table.SetAttr("displaystyle", "true")
	}
	return table, atomInfo{}, nil
}

// rows reads table cells up to the matching \end.
func (s *state) rows(begin *Token, name string) ([]*mml.Node, error) {
	cellEnd := func(t *Token) bool { return t.Kind == TokAlign || isCommand(t, `\`, "end") }
	var rows []*mml.Node
	current := mml.Mtr()
	for {
		cell, err := s.expr(cellEnd)
		if err != nil {
			return nil, err
		}
		current.Append(mml.Mtd(cell...))

		t, err := s.next()
		if err != nil {
			return nil, err
		}
		switch {
		case t == nil:
			return nil, s.errorf(begin, `missing \end{%s}`, name)
		case t.Kind == TokAlign:
		case isCommand(t, `\`):
			rows = append(rows, current)
			current = mml.Mtr()
		default:
			end, offset, err := s.lex.RawGroup()
			if err != nil {
				return nil, err
			}
			if strings.TrimSpace(end) != name {
				return nil, &SyntaxError{Offset: offset, Msg: fmt.Sprintf(`\begin{%s} ended by \end{%s}`, name, end)}
			}
			// A trailing \\ leaves one empty cell behind.
			if len(rows) == 0 || len(current.Children) > 1 || len(current.Children[0].Children) > 0 {
				rows = append(rows, current)
			}
			return rows, nil
		}
	}
}

func columnAlign(spec string) string {
	var cols []string
	for _, r := range spec {
		switch r {
		case 'l':
			cols = append(cols, "left")
		case 'c':
			cols = append(cols, "center")
		case 'r':
			cols = append(cols, "right")
		}
	}
	return strings.Join(cols, " ")
}
