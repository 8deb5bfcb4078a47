package tex

import "github.com/CTAG07/texmml/pkg/variant"

// identifiers are control sequences that render as <mi>.
var identifiers = map[string]string{
	"alpha": "α", "beta": "β", "gamma": "γ", "delta": "δ", "epsilon": "ϵ",
	"varepsilon": "ε", "zeta": "ζ", "eta": "η", "theta": "θ", "vartheta": "ϑ",
	"iota": "ι", "kappa": "κ", "varkappa": "ϰ", "lambda": "λ", "mu": "μ",
	"nu": "ν", "xi": "ξ", "omicron": "ο", "pi": "π", "varpi": "ϖ", "rho": "ρ",
	"varrho": "ϱ", "sigma": "σ", "varsigma": "ς", "tau": "τ", "upsilon": "υ",
	"phi": "ϕ", "varphi": "φ", "chi": "χ", "psi": "ψ", "omega": "ω",
	"digamma": "ϝ",

	"Gamma": "Γ", "Delta": "Δ", "Theta": "Θ", "Lambda": "Λ", "Xi": "Ξ",
	"Pi": "Π", "Sigma": "Σ", "Upsilon": "Υ", "Phi": "Φ", "Psi": "Ψ",
	"Omega": "Ω",

	"infty": "∞", "partial": "∂", "nabla": "∇", "ell": "ℓ", "hbar": "ℏ",
	"hslash": "ℏ", "imath": "ı", "jmath": "ȷ", "aleph": "ℵ", "beth": "ℶ",
	"gimel": "ℷ", "wp": "℘", "Re": "ℜ", "Im": "ℑ", "emptyset": "∅",
	"varnothing": "∅", "complement": "∁", "eth": "ð",
}

// uprightIdentifiers keep mathvariant="normal" so that single capital Greek
// letters are not shown in italics.
var uprightIdentifiers = map[string]bool{
	"Gamma": true, "Delta": true, "Theta": true, "Lambda": true, "Xi": true,
	"Pi": true, "Sigma": true, "Upsilon": true, "Phi": true, "Psi": true,
	"Omega": true, "infty": true, "emptyset": true, "varnothing": true,
	"aleph": true, "beth": true, "gimel": true, "Re": true, "Im": true,
	"complement": true, "nabla": true,
}

// operators are control sequences that render as <mo>.
var operators = map[string]string{
	// binary operators
	"pm": "±", "mp": "∓", "times": "×", "div": "÷", "cdot": "⋅", "ast": "∗",
	"star": "⋆", "circ": "∘", "bullet": "∙", "oplus": "⊕", "ominus": "⊖",
	"otimes": "⊗", "oslash": "⊘", "odot": "⊙", "cap": "∩", "cup": "∪",
	"sqcap": "⊓", "sqcup": "⊔", "vee": "∨", "lor": "∨", "wedge": "∧",
	"land": "∧", "setminus": "∖", "wr": "≀", "amalg": "⨿", "dagger": "†",
	"ddagger": "‡", "uplus": "⊎", "diamond": "⋄", "bigtriangleup": "△",
	"bigtriangledown": "▽", "triangleleft": "◃", "triangleright": "▹",

	// relations
	"leq": "≤", "le": "≤", "geq": "≥", "ge": "≥", "neq": "≠", "ne": "≠",
	"equiv": "≡", "approx": "≈", "cong": "≅", "sim": "∼", "simeq": "≃",
	"propto": "∝", "ll": "≪", "gg": "≫", "prec": "≺", "succ": "≻",
	"preceq": "⪯", "succeq": "⪰", "subset": "⊂", "supset": "⊃",
	"subseteq": "⊆", "supseteq": "⊇", "subsetneq": "⊊", "supsetneq": "⊋",
	"in": "∈", "ni": "∋", "notin": "∉", "perp": "⊥", "parallel": "∥",
	"mid": "∣", "nmid": "∤", "vdash": "⊢", "dashv": "⊣", "models": "⊨",
	"asymp": "≍", "doteq": "≐", "leqslant": "⩽", "geqslant": "⩾",
	"lesssim": "≲", "gtrsim": "≳", "coloneqq": "≔", "triangleq": "≜",

	// arrows
	"to": "→", "rightarrow": "→", "leftarrow": "←", "gets": "←",
	"leftrightarrow": "↔", "Rightarrow": "⇒", "Leftarrow": "⇐",
	"Leftrightarrow": "⇔", "implies": "⟹", "impliedby": "⟸", "iff": "⟺",
	"longrightarrow": "⟶", "longleftarrow": "⟵", "Longrightarrow": "⟹",
	"Longleftarrow": "⟸", "longleftrightarrow": "⟷", "mapsto": "↦",
	"longmapsto": "⟼", "uparrow": "↑", "downarrow": "↓", "updownarrow": "↕",
	"Uparrow": "⇑", "Downarrow": "⇓", "nearrow": "↗", "searrow": "↘",
	"swarrow": "↙", "nwarrow": "↖", "hookrightarrow": "↪",
	"hookleftarrow": "↩", "rightleftharpoons": "⇌",

	// logic and miscellany
	"forall": "∀", "exists": "∃", "nexists": "∄", "neg": "¬", "lnot": "¬",
	"therefore": "∴", "because": "∵", "angle": "∠", "triangle": "△",
	"ldots": "…", "dots": "…", "cdots": "⋯", "vdots": "⋮", "ddots": "⋱",
	"colon": ":", "prime": "′", "top": "⊤", "bot": "⊥", "vert": "|",
	"Vert": "‖", "backslash": "∖", "surd": "√", "sharp": "♯", "flat": "♭",
	"natural": "♮", "clubsuit": "♣", "diamondsuit": "♢", "heartsuit": "♡",
	"spadesuit": "♠", "lbrace": "{", "rbrace": "}",
}

// delimiters may follow \left, \right, \middle and the \big family.
var delimiters = map[string]string{
	"(": "(", ")": ")", "[": "[", "]": "]", "|": "|", "/": "/", ".": "",
	"<": "⟨", ">": "⟩",
	`\{`: "{", `\}`: "}", `\|`: "‖", `\lbrace`: "{", `\rbrace`: "}",
	`\langle`: "⟨", `\rangle`: "⟩", `\lvert`: "|", `\rvert`: "|",
	`\lVert`: "‖", `\rVert`: "‖", `\vert`: "|", `\Vert`: "‖",
	`\lfloor`: "⌊", `\rfloor`: "⌋", `\lceil`: "⌈", `\rceil`: "⌉",
	`\uparrow`: "↑", `\downarrow`: "↓", `\backslash`: "∖",
	`\lbrack`: "[", `\rbrack`: "]",
}

// bigOperators take limits under and over the symbol in display mode.
var bigOperators = map[string]string{
	"sum": "∑", "prod": "∏", "coprod": "∐", "bigcup": "⋃", "bigcap": "⋂",
	"bigsqcup": "⨆", "bigvee": "⋁", "bigwedge": "⋀", "bigoplus": "⨁",
	"bigotimes": "⨂", "bigodot": "⨀", "biguplus": "⨄",
}

// integrals keep their limits as scripts unless \limits is given.
var integrals = map[string]string{
	"int": "∫", "iint": "∬", "iiint": "∭", "iiiint": "⨌", "oint": "∮",
	"oiint": "∯", "oiiint": "∰",
}

// functions render as upright identifiers followed by a function
// application operator.
var functions = map[string]bool{
	"sin": true, "cos": true, "tan": true, "cot": true, "sec": true,
	"csc": true, "arcsin": true, "arccos": true, "arctan": true,
	"sinh": true, "cosh": true, "tanh": true, "coth": true, "log": true,
	"ln": true, "lg": true, "exp": true, "arg": true, "deg": true,
	"dim": true, "hom": true, "ker": true,
}

// limitFunctions are functions whose scripts become limits in display mode.
var limitFunctions = map[string]string{
	"lim": "lim", "liminf": "lim inf", "limsup": "lim sup", "max": "max",
	"min": "min", "sup": "sup", "inf": "inf", "det": "det", "gcd": "gcd",
	"Pr": "Pr",
}

// spaces maps spacing commands to mspace widths.
var spaces = map[string]string{
	",": "0.167em", "thinspace": "0.167em", ":": "0.222em", ">": "0.222em",
	"medspace": "0.222em", ";": "0.278em", "thickspace": "0.278em",
	"!": "-0.167em", "negthinspace": "-0.167em", " ": "0.25em",
	"enspace": "0.5em", "quad": "1em", "qquad": "2em",
}

// escapes are single-character control sequences standing for themselves.
var escapes = map[string]string{
	"{": "{", "}": "}", "%": "%", "$": "$", "#": "#", "&": "&", "_": "_",
	"|": "‖",
}

type accent struct {
	mark    string
	stretch bool
}

var accents = map[string]accent{
	"hat": {"^", false}, "widehat": {"^", true}, "check": {"ˇ", false},
	"tilde": {"~", false}, "widetilde": {"~", true}, "acute": {"´", false},
	"grave": {"`", false}, "dot": {"˙", false}, "ddot": {"¨", false},
	"dddot": {"⃛", false}, "breve": {"˘", false}, "bar": {"¯", false},
	"vec": {"→", false}, "overrightarrow": {"→", true},
	"overleftarrow": {"←", true}, "overline": {"‾", true}, "mathring": {"˚", false},
}

var underAccents = map[string]string{
	"underline":       "_",
	"underrightarrow": "→",
	"underleftarrow":  "←",
}

// braces place a stretchy brace over or under the base and take limits.
var braces = map[string]struct {
	mark  string
	under bool
}{
	"overbrace":  {"⏞", false},
	"underbrace": {"⏟", true},
}

// fonts maps font commands to mathvariant styles.
var fonts = map[string]string{
	"mathbf":     variant.Bold,
	"mathit":     variant.Italic,
	"mathbb":     variant.DoubleStruck,
	"mathfrak":   variant.Fraktur,
	"mathcal":    variant.Script,
	"mathscr":    variant.Script,
	"mathsf":     variant.SansSerif,
	"mathtt":     variant.Monospace,
	"mathrm":     variant.Normal,
	"boldsymbol": variant.BoldItalic,
	"bm":         variant.BoldItalic,
	"mathbfit":   variant.BoldItalic,
	"mathsfit":   variant.SansSerifItalic,
	"Bbb":        variant.DoubleStruck,
}

// textCommands read their argument verbatim into an <mtext>.
var textCommands = map[string]bool{
	"text": true, "mbox": true, "textrm": true, "textnormal": true,
	"hbox": true, "textup": true,
}

// bigSizes are the heights of the \big delimiter family.
var bigSizes = map[string]string{
	"big": "1.2em", "bigl": "1.2em", "bigr": "1.2em", "bigm": "1.2em",
	"Big": "1.623em", "Bigl": "1.623em", "Bigr": "1.623em", "Bigm": "1.623em",
	"bigg": "2.047em", "biggl": "2.047em", "biggr": "2.047em", "biggm": "2.047em",
	"Bigg": "2.470em", "Biggl": "2.470em", "Biggr": "2.470em", "Biggm": "2.470em",
}

// styleCommands switch the math style for the rest of the current group.
var styleCommands = map[string][]string{
	"displaystyle":      {"displaystyle", "true", "scriptlevel", "0"},
	"textstyle":         {"displaystyle", "false", "scriptlevel", "0"},
	"scriptstyle":       {"displaystyle", "false", "scriptlevel", "1"},
	"scriptscriptstyle": {"displaystyle", "false", "scriptlevel", "2"},
}

// charOperators remaps ASCII operator characters to their MathML forms.
var charOperators = map[string]string{
	"-": "−",
	"*": "∗",
	"'": "′",
}

// fence describes the delimiters of a matrix-like environment.
type fence struct {
	open, close string
}

var matrixFences = map[string]fence{
	"matrix":      {},
	"smallmatrix": {},
	"pmatrix":     {"(", ")"},
	"bmatrix":     {"[", "]"},
	"Bmatrix":     {"{", "}"},
	"vmatrix":     {"|", "|"},
	"Vmatrix":     {"‖", "‖"},
}
