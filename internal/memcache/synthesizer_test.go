package memcache

import (
	"bytes"
	"testing"

	"github.com/fsaintjacques/membench/internal/profile"
)

func TestSynthesizeKeyDeterministic(t *testing.T) {
	a := SynthesizeKey(0x1234, 8)
	b := SynthesizeKey(0x1234, 8)
	if !bytes.Equal(a, b) {
		t.Fatalf("SynthesizeKey not deterministic: %q vs %q", a, b)
	}
	for _, c := range a {
		if c == ' ' || c == '\r' || c == '\n' {
			t.Fatalf("SynthesizeKey produced forbidden byte %q in %q", c, a)
		}
	}
	if len(a) != 8 {
		t.Fatalf("SynthesizeKey length = %d, want 8", len(a))
	}
}

func TestSynthesizeSetGetRoundTrip(t *testing.T) {
	setEv := profile.Event{Command: profile.CommandSet, KeyHash: 0x1234, KeySize: 4, HasValueSize: true, ValueSize: 3}
	getEv := profile.Event{Command: profile.CommandGet, KeyHash: 0x1234, KeySize: 4}

	var wire []byte
	wire = append(wire, Synthesize(&setEv, ProtocolASCII)...)
	wire = append(wire, Synthesize(&getEv, ProtocolASCII)...)

	key := SynthesizeKey(0x1234, 4)
	want := "set " + string(key) + " 0 0 3\r\nxxx\r\nget " + string(key) + "\r\n"
	if string(wire) != want {
		t.Fatalf("got wire %q, want %q", wire, want)
	}

	// The synthesized wire bytes must themselves parse back as valid
	// commands, closing the loop between the parser's grammar and the
	// synthesizer's rendering of it.
	cmd, n, err := Parse(wire)
	if err != nil {
		t.Fatalf("Parse(set): %v", err)
	}
	if cmd.Type != profile.CommandSet || cmd.ValueSize != 3 {
		t.Fatalf("unexpected parsed set command: %+v", cmd)
	}
	cmd, _, err = Parse(wire[n:])
	if err != nil {
		t.Fatalf("Parse(get): %v", err)
	}
	if cmd.Type != profile.CommandGet {
		t.Fatalf("unexpected parsed get command: %+v", cmd)
	}
}

func TestSynthesizeMetaModeVerbs(t *testing.T) {
	get := Synthesize(&profile.Event{Command: profile.CommandGet, KeyHash: 1, KeySize: 2}, ProtocolMeta)
	if !bytes.HasPrefix(get, []byte("mg ")) {
		t.Fatalf("meta get: got %q, want mg prefix", get)
	}
	del := Synthesize(&profile.Event{Command: profile.CommandDelete, KeyHash: 1, KeySize: 2}, ProtocolMeta)
	if !bytes.HasPrefix(del, []byte("md ")) {
		t.Fatalf("meta delete: got %q, want md prefix", del)
	}
	noop := Synthesize(&profile.Event{Command: profile.CommandNoop}, ProtocolMeta)
	if string(noop) != "mn\r\n" {
		t.Fatalf("meta noop: got %q, want mn\\r\\n", noop)
	}
}
