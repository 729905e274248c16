// Package hashing provides the canonical content-hashing primitives shared
// by the reducer, the projection, the blob store, and the export pipeline.
// Every hash in this system is a BLAKE3 digest of canonical (deterministic,
// float-free) bytes, hex-encoded.
package hashing

import (
	"encoding/hex"
	"math"

	"github.com/zeebo/blake3"
)

// Digest is a hex-encoded BLAKE3-256 hash.
type Digest string

// Sum hashes data and returns its hex-encoded digest.
func Sum(data []byte) Digest {
	sum := blake3.Sum256(data)
	return Digest(hex.EncodeToString(sum[:]))
}

// Hasher incrementally hashes canonical bytes, used where the caller has
// many small fragments to feed rather than one contiguous buffer (e.g. the
// reducer folding one CommittedEvent at a time into the running state
// hash without re-serializing the whole state on every step).
type Hasher struct {
	h *blake3.Hasher
}

// NewHasher returns a ready-to-use incremental hasher.
func NewHasher() *Hasher {
	return &Hasher{h: blake3.New()}
}

// Write feeds bytes into the running digest. It never returns an error;
// the signature matches io.Writer so a Hasher can be used anywhere an
// io.Writer is expected.
func (h *Hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

// Sum returns the current hex-encoded digest without resetting state.
func (h *Hasher) Sum() Digest {
	sum := h.h.Sum(nil)
	return Digest(hex.EncodeToString(sum))
}

// FixedPoint converts a float64 in canonical surfaces to a fixed-point
// integer at 1,000,000x scale, rounding half away from zero. This is the
// only representation of fractional values that ever enters a hashed or
// canonically-serialized surface; raw floats never do, since float
// formatting is platform- and implementation-dependent and would make
// hashes non-reproducible across implementations.
func FixedPoint(v float64) int64 {
	scaled := v * 1_000_000
	if scaled >= 0 {
		return int64(math.Floor(scaled + 0.5))
	}
	return int64(math.Ceil(scaled - 0.5))
}

// FromFixedPoint reverses FixedPoint for display purposes. Display values
// are never fed back into a hashed surface.
func FromFixedPoint(fp int64) float64 {
	return float64(fp) / 1_000_000
}
