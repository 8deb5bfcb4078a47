package mml

// Namespace is the MathML XML namespace.
const Namespace = "http://www.w3.org/1998/Math/MathML"

func token(tag, text string, attrs Attributes) *Node {
	return NewElement(tag, attrs, Text(text))
}

// Mi creates an identifier token.
func Mi(text string, attrs Attributes) *Node { return token("mi", text, attrs) }

// Mn creates a number token.
func Mn(text string, attrs Attributes) *Node { return token("mn", text, attrs) }

// Mo creates an operator token.
func Mo(text string, attrs Attributes) *Node { return token("mo", text, attrs) }

// Mtext creates a text token.
func Mtext(text string, attrs Attributes) *Node { return token("mtext", text, attrs) }

// Mspace creates an empty space element of the given width.
func Mspace(width string) *Node {
	return NewElement("mspace", Attrs("width", width))
}

// Mrow groups children horizontally.
func Mrow(attrs Attributes, children ...*Node) *Node {
	return NewElement("mrow", attrs, children...)
}

// Msup attaches a superscript.
func Msup(base, sup *Node) *Node { return NewElement("msup", nil, base, sup) }

// Msub attaches a subscript.
func Msub(base, sub *Node) *Node { return NewElement("msub", nil, base, sub) }

// Msubsup attaches both a subscript and a superscript.
func Msubsup(base, sub, sup *Node) *Node { return NewElement("msubsup", nil, base, sub, sup) }

// Mover places a node above the base.
func Mover(attrs Attributes, base, over *Node) *Node {
	return NewElement("mover", attrs, base, over)
}

// Munder places a node below the base.
func Munder(attrs Attributes, base, under *Node) *Node {
	return NewElement("munder", attrs, base, under)
}

// Munderover places nodes below and above the base.
func Munderover(attrs Attributes, base, under, over *Node) *Node {
	return NewElement("munderover", attrs, base, under, over)
}

// Mfrac creates a fraction.
func Mfrac(attrs Attributes, num, den *Node) *Node {
	return NewElement("mfrac", attrs, num, den)
}

// Msqrt creates a square root over its children.
func Msqrt(children ...*Node) *Node { return NewElement("msqrt", nil, children...) }

// Mroot creates an n-th root.
func Mroot(base, index *Node) *Node { return NewElement("mroot", nil, base, index) }

// Mstyle applies presentation attributes to its children.
func Mstyle(attrs Attributes, children ...*Node) *Node {
	return NewElement("mstyle", attrs, children...)
}

// Mtable creates a table from rows.
func Mtable(attrs Attributes, rows ...*Node) *Node {
	return NewElement("mtable", attrs, rows...)
}

// Mtr creates a table row from cells.
func Mtr(cells ...*Node) *Node { return NewElement("mtr", nil, cells...) }

// Mtd creates a table cell.
func Mtd(children ...*Node) *Node { return NewElement("mtd", nil, children...) }

// Merror creates an error box containing a message.
func Merror(message string) *Node {
	return NewElement("merror", nil, Mtext(message, nil))
}
