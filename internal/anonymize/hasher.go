// Package anonymize computes the keyed 64-bit hash that stands in for a
// captured memcache key (spec.md §4.4). It deliberately never retains or
// logs the original key bytes.
package anonymize

import (
	"encoding/binary"
	"time"

	"github.com/dchest/siphash"
)

// Hasher is a process-wide keyed hash parameterized by a fixed salt. The
// same (salt, key) pair always yields the same hash, across runs and
// processes (spec.md §4.4 determinism).
type Hasher struct {
	k0, k1 uint64
}

// NewHasher builds a Hasher from an explicit 16-byte salt.
func NewHasher(salt [16]byte) Hasher {
	return Hasher{
		k0: binary.LittleEndian.Uint64(salt[0:8]),
		k1: binary.LittleEndian.Uint64(salt[8:16]),
	}
}

// NewHasherFromUint64 derives a salt from a single 64-bit seed, e.g. a CLI
// --salt flag. The seed is mixed into both halves of the SipHash key so
// that small/zero seeds still produce a well-distributed key.
func NewHasherFromUint64(seed uint64) Hasher {
	return Hasher{k0: seed, k1: ^seed}
}

// NewHasherFromClock derives a salt from the wall-clock time in
// nanoseconds since the Unix epoch (time.Now().UnixNano(), which carries no
// monotonic reading), used when the operator supplies no --salt at record
// startup.
func NewHasherFromClock() Hasher {
	return NewHasherFromUint64(uint64(time.Now().UnixNano()))
}

// Hash returns the keyed 64-bit SipHash-2-4 digest of key.
func (h Hasher) Hash(key []byte) uint64 {
	return siphash.Hash(h.k0, h.k1, key)
}

// Salt returns the two 64-bit halves backing this hasher, suitable for
// logging alongside operational logs (spec.md §4.4: "recorded alongside
// operational logs but not required in the profile").
func (h Hasher) Salt() (uint64, uint64) {
	return h.k0, h.k1
}
