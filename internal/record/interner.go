package record

import "github.com/fsaintjacques/membench/internal/flowbuf"

// overflowConnectionID is assigned to every flow beyond the 16-bit
// connection id space (spec.md §4.6).
const overflowConnectionID uint16 = 0xFFFF

// Interner maps a flow's 3-tuple to a dense connection id in [0, U), per
// spec.md §3 ("Connection id ... values are dense in [0, U)"). It is
// single-owner, driven by the record orchestrator's one goroutine.
type Interner struct {
	ids       map[flowbuf.FlowKey]uint16
	next      uint16
	truncated uint64
	overflow  bool
}

// NewInterner returns an empty interner.
func NewInterner() *Interner {
	return &Interner{ids: make(map[flowbuf.FlowKey]uint16)}
}

// Intern returns flow's dense connection id, assigning a fresh one on
// first sight. Once the 16-bit id space ([0, 65535)) is exhausted, every
// further new flow is assigned the shared overflow bucket id 0xFFFF and
// TruncatedConnections is incremented.
func (in *Interner) Intern(flow flowbuf.FlowKey) uint16 {
	if id, ok := in.ids[flow]; ok {
		return id
	}
	if in.next >= overflowConnectionID {
		in.overflow = true
		in.truncated++
		in.ids[flow] = overflowConnectionID
		return overflowConnectionID
	}
	id := in.next
	in.ids[flow] = id
	in.next++
	return id
}

// TruncatedConnections reports how many distinct flows were folded into
// the overflow bucket because the connection id space was exhausted.
func (in *Interner) TruncatedConnections() uint64 { return in.truncated }
