package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// FitKey identifies one fitted-model configuration for memoization.
// Two fits share a key iff outcome, scope, grouping and prior variant
// all match.
type FitKey Hash

func (k FitKey) String() string { return Hash(k).String() }

// ComputeFitKey derives the deterministic cache key for a fit
// configuration. Parts are joined with a separator that cannot occur in
// any part, so distinct configurations never collide.
func ComputeFitKey(parts ...string) FitKey {
	return FitKey(NewHash([]byte(strings.Join(parts, "\x1f"))))
}
