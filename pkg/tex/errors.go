package tex

import (
	"errors"
	"fmt"
)

// ErrSyntax is matched by every SyntaxError.
var ErrSyntax = errors.New("tex: syntax error")

// SyntaxError reports input that is not valid in the supported TeX subset.
type SyntaxError struct {
	Offset int // byte offset into the NFC-normalized input
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("tex: %s at offset %d", e.Msg, e.Offset)
}

func (e *SyntaxError) Is(target error) bool {
	return target == ErrSyntax
}
