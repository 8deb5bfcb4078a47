package checker

import (
	"fmt"
	"strings"
	"time"

	"github.com/CTAG07/texmml/pkg/tex"
)

// KindTeX is the only input kind currently rendered.
const KindTeX = "tex"

// Render engines.
const (
	// EngineNative uses the tex package parser.
	EngineNative = "native"
	// EngineLaTeX2MathML uses git.sr.ht/~mekyt/latex2mathml and reads its
	// output back into a fragment.
	EngineLaTeX2MathML = "latex2mathml"
)

// Config holds the options of a Factory.
type Config struct {
	// Namespace prefixes every cache key. Factories that render differently
	// must not share a namespace. It must not contain a colon.
	Namespace string

	// TTL is how long a rendered fragment stays cached.
	TTL time.Duration

	// ErrorTTL is how long an <merror> diagnostic stays cached.
	ErrorTTL time.Duration

	// Timeout bounds every backend call. Zero disables the bound.
	Timeout time.Duration

	// NamespacePurge makes a purging checker drop the whole namespace
	// instead of its own key.
	NamespacePurge bool

	Engine string
	TeX    tex.Config
}

// DefaultConfig returns a Config with safe default values.
func DefaultConfig() Config {
	return Config{
		Namespace: "mathml",
		TTL:       24 * time.Hour,
		ErrorTTL:  5 * time.Minute,
		Timeout:   2 * time.Second,
		Engine:    EngineNative,
		TeX:       tex.DefaultConfig(),
	}
}

func (c Config) validate() error {
	switch {
	case c.Namespace == "":
		return fmt.Errorf("%w: empty namespace", ErrInvalidConfig)
	case strings.Contains(c.Namespace, ":"):
		return fmt.Errorf("%w: namespace %q contains a colon", ErrInvalidConfig, c.Namespace)
	case c.TTL <= 0 || c.ErrorTTL <= 0:
		return fmt.Errorf("%w: TTLs must be positive", ErrInvalidConfig)
	case c.Timeout < 0:
		return fmt.Errorf("%w: negative timeout", ErrInvalidConfig)
	}
	switch c.Engine {
	case EngineNative, EngineLaTeX2MathML:
	default:
		return fmt.Errorf("%w: unknown engine %q", ErrInvalidConfig, c.Engine)
	}
	return nil
}
