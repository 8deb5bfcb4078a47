/*
Package checker renders TeX input to MathML and caches the result.

A Factory binds a cachestore.Backend to a rendering configuration. Each
LocalChecker it hands out renders one input:

	f, err := checker.NewFactory(cachestore.NewMemory(0))
	if err != nil {
		return err
	}
	c, err := f.NewLocalChecker(`x^2+1`, checker.KindTeX, false)
	if err != nil {
		return err
	}
	markup := c.PresentationMathML(ctx) // <msup><mi>x</mi><mn>2</mn></msup>...

The first render of an input parses the TeX and stores the serialized
fragment under a key derived from the input. Later renders of the same input,
by any checker of a factory with the same namespace, read the fragment back
from the cache without parsing TeX again.

Rendering never fails. Malformed TeX produces an <merror> fragment, which is
cached for a shorter time than a regular fragment, and a backend that cannot
be reached only costs the cache: the input is rendered directly.
*/
package checker
