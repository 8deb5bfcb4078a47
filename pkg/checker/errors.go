package checker

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedKind is matched by every UnsupportedKindError.
	ErrUnsupportedKind = errors.New("checker: unsupported input kind")
	// ErrInvalidConfig is returned by NewFactory for an unusable Config.
	ErrInvalidConfig = errors.New("checker: invalid config")
)

// UnsupportedKindError reports an input kind no engine understands.
type UnsupportedKindError struct {
	Kind string
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("checker: unsupported input kind %q", e.Kind)
}

func (e *UnsupportedKindError) Is(target error) bool {
	return target == ErrUnsupportedKind
}
