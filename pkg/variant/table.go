package variant

import "sync"

// Style names as used by the MathML mathvariant attribute.
const (
	Normal              = "normal"
	Bold                = "bold"
	Italic              = "italic"
	BoldItalic          = "bold-italic"
	DoubleStruck        = "double-struck"
	BoldFraktur         = "bold-fraktur"
	Script              = "script"
	BoldScript          = "bold-script"
	Fraktur             = "fraktur"
	SansSerif           = "sans-serif"
	BoldSansSerif       = "bold-sans-serif"
	SansSerifItalic     = "sans-serif-italic"
	SansSerifBoldItalic = "sans-serif-bold-italic"
	Monospace           = "monospace"
	Initial             = "initial"
	Tailed              = "tailed"
	Looped              = "looped"
	Stretched           = "stretched"
)

var styleOrder = []string{
	Normal, Bold, Italic, BoldItalic, DoubleStruck, BoldFraktur, Script,
	BoldScript, Fraktur, SansSerif, BoldSansSerif, SansSerifItalic,
	SansSerifBoldItalic, Monospace, Initial, Tailed, Looped, Stretched,
}

var (
	table     map[string]map[rune]rune
	tableOnce sync.Once
)

// mappings returns the process-wide table, building it on first use. The
// table is never written after construction, so readers need no locking.
func mappings() map[string]map[rune]rune {
	tableOnce.Do(func() {
		table = buildTable()
	})
	return table
}

// Latin blocks in Mathematical Alphanumeric Symbols: 26 capitals followed by
// 26 small letters.
var latinStart = map[string]rune{
	Bold:                0x1D400,
	Italic:              0x1D434,
	BoldItalic:          0x1D468,
	Script:              0x1D49C,
	BoldScript:          0x1D4D0,
	Fraktur:             0x1D504,
	DoubleStruck:        0x1D538,
	BoldFraktur:         0x1D56C,
	SansSerif:           0x1D5A0,
	BoldSansSerif:       0x1D5D4,
	SansSerifItalic:     0x1D608,
	SansSerifBoldItalic: 0x1D63C,
	Monospace:           0x1D670,
}

// Letters whose slot in the block is reserved because the character was
// already encoded in Letterlike Symbols.
var latinHoles = map[string]map[rune]rune{
	Italic: {'h': 0x210E},
	Script: {
		'B': 0x212C, 'E': 0x2130, 'F': 0x2131, 'H': 0x210B, 'I': 0x2110,
		'L': 0x2112, 'M': 0x2133, 'R': 0x211B, 'e': 0x212F, 'g': 0x210A,
		'o': 0x2134,
	},
	Fraktur: {'C': 0x212D, 'H': 0x210C, 'I': 0x2111, 'R': 0x211C, 'Z': 0x2128},
	DoubleStruck: {
		'C': 0x2102, 'H': 0x210D, 'N': 0x2115, 'P': 0x2119, 'Q': 0x211A,
		'R': 0x211D, 'Z': 0x2124,
	},
}

// Greek blocks: 25 capitals (with ϴ in the reserved U+03A2 slot), ∇, 25
// small letters, then ∂ ϵ ϑ ϰ ϕ ϱ ϖ.
var greekStart = map[string]rune{
	Bold:                0x1D6A8,
	Italic:              0x1D6E2,
	BoldItalic:          0x1D71C,
	BoldSansSerif:       0x1D756,
	SansSerifBoldItalic: 0x1D790,
}

var greekTail = []rune{0x2202, 0x03F5, 0x03D1, 0x03F0, 0x03D5, 0x03F1, 0x03D6}

var digitStart = map[string]rune{
	Bold:          0x1D7CE,
	DoubleStruck:  0x1D7D8,
	SansSerif:     0x1D7E2,
	BoldSansSerif: 0x1D7EC,
	Monospace:     0x1D7F6,
}

// arabicLetters is the letter order of the Arabic Mathematical Alphabetic
// Symbols block; each style occupies 32 slots starting at its base.
var arabicLetters = []rune{
	0x0627, 0x0628, 0x062C, 0x062F, 0x0647, 0x0648, 0x0632, 0x062D,
	0x0637, 0x064A, 0x0643, 0x0644, 0x0645, 0x0646, 0x0633, 0x0639,
	0x0641, 0x0635, 0x0642, 0x0631, 0x0634, 0x062A, 0x062B, 0x062E,
	0x0630, 0x0636, 0x0638, 0x063A, 0x066E, 0x06BA, 0x06A1, 0x066F,
}

type arabicStyle struct {
	base  rune
	slots []int
}

func slotRange(from, to int, skip ...int) []int {
	var out []int
next:
	for i := from; i <= to; i++ {
		for _, s := range skip {
			if i == s {
				continue next
			}
		}
		out = append(out, i)
	}
	return out
}

var arabicStyles = map[string]arabicStyle{
	Initial: {base: 0x1EE20, slots: []int{
		0x01, 0x02, 0x04, 0x07, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E,
		0x0F, 0x10, 0x11, 0x12, 0x14, 0x15, 0x16, 0x17, 0x19, 0x1B,
	}},
	Tailed: {base: 0x1EE40, slots: []int{
		0x02, 0x07, 0x09, 0x0B, 0x0D, 0x0E, 0x0F, 0x11, 0x12, 0x14,
		0x17, 0x19, 0x1B, 0x1D, 0x1F,
	}},
	Stretched: {base: 0x1EE60, slots: []int{
		0x01, 0x02, 0x04, 0x07, 0x08, 0x09, 0x0A, 0x0C, 0x0D, 0x0E,
		0x0F, 0x10, 0x11, 0x12, 0x14, 0x15, 0x16, 0x17, 0x19, 0x1A,
		0x1B, 0x1C, 0x1E,
	}},
	Looped:       {base: 0x1EE80, slots: slotRange(0x00, 0x1B, 0x0A)},
	DoubleStruck: {base: 0x1EEA0, slots: slotRange(0x01, 0x1B, 0x04, 0x0A)},
}

func buildTable() map[string]map[rune]rune {
	t := make(map[string]map[rune]rune, len(styleOrder))
	for _, s := range styleOrder {
		t[s] = map[rune]rune{}
	}

	for style, start := range latinStart {
		m := t[style]
		for i := rune(0); i < 26; i++ {
			m['A'+i] = start + i
			m['a'+i] = start + 26 + i
		}
		for src, dst := range latinHoles[style] {
			m[src] = dst
		}
	}
	t[Italic][0x0131] = 0x1D6A4 // dotless i
	t[Italic][0x0237] = 0x1D6A5 // dotless j

	for style, start := range greekStart {
		m := t[style]
		for i := rune(0); i < 25; i++ {
			src := 0x0391 + i
			if src == 0x03A2 {
				src = 0x03F4
			}
			m[src] = start + i
		}
		m[0x2207] = start + 25
		for i := rune(0); i < 25; i++ {
			m[0x03B1+i] = start + 26 + i
		}
		for i, src := range greekTail {
			m[src] = start + 51 + rune(i)
		}
	}
	t[Bold][0x03DC] = 0x1D7CA // digamma
	t[Bold][0x03DD] = 0x1D7CB

	for style, start := range digitStart {
		m := t[style]
		for i := rune(0); i < 10; i++ {
			m['0'+i] = start + i
		}
	}

	for style, a := range arabicStyles {
		m := t[style]
		for _, slot := range a.slots {
			m[arabicLetters[slot]] = a.base + rune(slot)
		}
	}
	return t
}
