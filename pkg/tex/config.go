package tex

// Display modes for the enclosing math element.
const (
	DisplayInline = "inline"
	DisplayBlock  = "block"
)

// Config holds the options of a Parser.
type Config struct {
	// Display selects inline or block rendering. In block mode big operators
	// such as \sum place their limits under and over the symbol.
	Display string

	// MaxLength is the largest input, in bytes, the parser accepts.
	MaxLength int

	// MaxDepth bounds the nesting of groups, arguments and environments.
	MaxDepth int
}

// DefaultConfig returns a Config with safe default values.
func DefaultConfig() Config {
	return Config{
		Display:   DisplayBlock,
		MaxLength: 64 * 1024,
		MaxDepth:  64,
	}
}
