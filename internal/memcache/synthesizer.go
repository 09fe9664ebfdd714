package memcache

import (
	"fmt"

	"github.com/fsaintjacques/membench/internal/profile"
)

// ProtocolMode selects which on-wire rendering the synthesizer emits.
type ProtocolMode int

const (
	ProtocolASCII ProtocolMode = iota
	ProtocolMeta
)

func (m ProtocolMode) String() string {
	if m == ProtocolMeta {
		return "meta"
	}
	return "ascii"
}

// fillerByte is the fixed filler used for synthesized Set values ('x').
const fillerByte = 0x78

// forbidden bytes a synthesized key must never contain.
const (
	byteSpace = ' '
	byteCR    = '\r'
	byteLF    = '\n'
)

// SynthesizeKey renders key_hash as lowercase hex and repeats/truncates it
// to exactly keySize bytes, never producing a space, CR, or LF (spec.md
// §4.10). Determinism: same (hash, keySize) always yields the same bytes.
func SynthesizeKey(hash uint64, keySize uint32) []byte {
	if keySize == 0 {
		return []byte{}
	}
	hex := fmt.Sprintf("%016x", hash)
	out := make([]byte, keySize)
	for i := range out {
		c := hex[i%len(hex)]
		out[i] = c
	}
	// hex digits are always in [0-9a-f]; none of them collide with the
	// forbidden bytes, so no further scrubbing is required.
	return out
}

// SynthesizeValue renders a fixed-filler value block of exactly size bytes.
func SynthesizeValue(size uint32) []byte {
	out := make([]byte, size)
	for i := range out {
		out[i] = fillerByte
	}
	return out
}

// Synthesize renders the full on-wire command bytes for one event, in the
// given protocol mode (spec.md §4.10).
func Synthesize(e *profile.Event, mode ProtocolMode) []byte {
	key := SynthesizeKey(e.KeyHash, e.KeySize)

	switch e.Command {
	case profile.CommandGet:
		if mode == ProtocolMeta {
			return buildLine("mg", key, "v")
		}
		return buildLine("get", key)

	case profile.CommandDelete:
		if mode == ProtocolMeta {
			return buildLine("md", key)
		}
		return buildLine("delete", key)

	case profile.CommandNoop:
		if mode == ProtocolMeta {
			return []byte("mn\r\n")
		}
		return []byte("version\r\n")

	case profile.CommandSet:
		value := SynthesizeValue(e.ValueSize)
		var head []byte
		if mode == ProtocolMeta {
			head = buildLine("ms", key, fmt.Sprintf("%d", e.ValueSize))
		} else {
			head = buildLine("set", key, "0", "0", fmt.Sprintf("%d", e.ValueSize))
		}
		out := make([]byte, 0, len(head)+len(value)+2)
		out = append(out, head...)
		out = append(out, value...)
		out = append(out, '\r', '\n')
		return out

	default:
		return []byte("version\r\n")
	}
}

func buildLine(verb string, key []byte, extra ...string) []byte {
	out := make([]byte, 0, len(verb)+1+len(key)+8)
	out = append(out, verb...)
	out = append(out, ' ')
	out = append(out, key...)
	for _, e := range extra {
		out = append(out, ' ')
		out = append(out, e...)
	}
	out = append(out, '\r', '\n')
	return out
}
