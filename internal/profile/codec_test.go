package profile

import "testing"

func TestEventRoundTrip(t *testing.T) {
	e := Event{
		Timestamp:    1234,
		ConnectionID: 7,
		Command:      CommandSet,
		Flags:        FlagHasValue,
		KeyHash:      0xdeadbeefcafef00d,
		KeySize:      4,
		HasValueSize: true,
		ValueSize:    128,
	}
	body := EncodeEvent(nil, &e)
	got, err := DecodeEvent(body)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if got != e {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, e)
	}
}

func TestEventRoundTripNoValue(t *testing.T) {
	e := Event{Timestamp: 1, ConnectionID: 0, Command: CommandGet, KeySize: 3}
	got, err := DecodeEvent(EncodeEvent(nil, &e))
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if got.HasValueSize {
		t.Fatalf("expected HasValueSize=false, got true")
	}
	if got != e {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, e)
	}
}

func TestDecodeEventTooShort(t *testing.T) {
	if _, err := DecodeEvent([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error on truncated event body")
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	m := NewMetadata()
	m.Observe(&Event{Timestamp: 10, ConnectionID: 1, Command: CommandGet})
	m.Observe(&Event{Timestamp: 20, ConnectionID: 2, Command: CommandSet, HasValueSize: true, ValueSize: 3})
	m.Finalize()

	body := EncodeMetadata(nil, m)
	got, err := DecodeMetadata(body)
	if err != nil {
		t.Fatalf("DecodeMetadata: %v", err)
	}
	if got.TotalEvents != 2 || got.UniqueConnections != 2 {
		t.Fatalf("unexpected metadata: %+v", got)
	}
	if got.FirstTimestamp != 10 || got.LastTimestamp != 20 {
		t.Fatalf("unexpected timestamps: %+v", got)
	}
	if got.CommandDistribution[CommandGet] != 1 || got.CommandDistribution[CommandSet] != 1 {
		t.Fatalf("unexpected command distribution: %+v", got.CommandDistribution)
	}
}

func TestDecodeMetadataBadMagic(t *testing.T) {
	m := NewMetadata()
	m.Finalize()
	body := EncodeMetadata(nil, m)
	body[0] ^= 0xFF // corrupt the magic
	if _, err := DecodeMetadata(body); err == nil {
		t.Fatal("expected error on bad magic")
	}
}

func TestDecodeMetadataBadVersion(t *testing.T) {
	m := NewMetadata()
	m.Finalize()
	body := EncodeMetadata(nil, m)
	body[4] = Version + 1
	if _, err := DecodeMetadata(body); err == nil {
		t.Fatal("expected error on unsupported version")
	}
}

func TestEventValidate(t *testing.T) {
	cases := []struct {
		name string
		e    Event
		ok   bool
	}{
		{"set with value", Event{Command: CommandSet, KeySize: 1, HasValueSize: true, ValueSize: 1, Flags: FlagHasValue}, true},
		{"set missing value", Event{Command: CommandSet, KeySize: 1, HasValueSize: false}, false},
		{"set zero value size", Event{Command: CommandSet, KeySize: 1, HasValueSize: true, ValueSize: 0, Flags: FlagHasValue}, false},
		{"get with value", Event{Command: CommandGet, KeySize: 1, HasValueSize: true}, false},
		{"noop zero key", Event{Command: CommandNoop}, true},
		{"get zero key", Event{Command: CommandGet, KeySize: 0}, false},
	}
	for _, c := range cases {
		err := c.e.Validate()
		if c.ok && err != nil {
			t.Errorf("%s: unexpected error: %v", c.name, err)
		}
		if !c.ok && err == nil {
			t.Errorf("%s: expected error, got nil", c.name)
		}
	}
}
