package checker

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// CacheKey returns the key a rendering of input is stored under. The digest
// covers the kind and the input separated by a NUL byte, so that
// byte-identical input of the same kind always maps to the same key.
func CacheKey(namespace, kind, input string) string {
	sum := blake2b.Sum256([]byte(kind + "\x00" + input))
	return namespace + ":" + kind + ":" + hex.EncodeToString(sum[:])
}
