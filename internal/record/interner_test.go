package record

import (
	"testing"

	"github.com/fsaintjacques/membench/internal/flowbuf"
)

func flowN(n uint16) flowbuf.FlowKey {
	return flowbuf.FlowKey{SrcPort: n, DstPort: 11211}
}

func TestInternerAssignsDenseIDs(t *testing.T) {
	in := NewInterner()
	for i := uint16(0); i < 5; i++ {
		id := in.Intern(flowN(i))
		if id != i {
			t.Fatalf("Intern(flow %d) = %d, want %d", i, id, i)
		}
	}
}

func TestInternerStableAcrossRepeatedSight(t *testing.T) {
	in := NewInterner()
	flow := flowN(0)
	first := in.Intern(flow)
	for i := 0; i < 10; i++ {
		if got := in.Intern(flow); got != first {
			t.Fatalf("Intern returned %d on repeat sight, want stable %d", got, first)
		}
	}
	if in.TruncatedConnections() != 0 {
		t.Fatalf("TruncatedConnections = %d, want 0", in.TruncatedConnections())
	}
}

func TestInternerOverflowBucket(t *testing.T) {
	in := NewInterner()
	in.next = overflowConnectionID // simulate exhaustion of the id space

	id1 := in.Intern(flowN(1))
	id2 := in.Intern(flowN(2))
	if id1 != overflowConnectionID || id2 != overflowConnectionID {
		t.Fatalf("got ids %d, %d, want both %d", id1, id2, overflowConnectionID)
	}
	if in.TruncatedConnections() != 2 {
		t.Fatalf("TruncatedConnections = %d, want 2", in.TruncatedConnections())
	}
}
