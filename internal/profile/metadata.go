package profile

// Magic terminates every profile file and also prefixes the serialized
// Metadata struct on the wire.
const Magic uint32 = 0xDEADBEEF

// Version is the current on-disk profile format version. Readers must
// reject any other value rather than reinterpret the layout.
const Version uint8 = 2

// Metadata is the rolling/finalized summary written as the profile's
// trailing record.
type Metadata struct {
	TotalEvents         uint64
	FirstTimestamp      uint64
	LastTimestamp       uint64
	UniqueConnections   uint32
	CommandDistribution map[Command]uint64

	haveTimestamps bool
	connections    map[uint16]struct{}
}

// NewMetadata returns a zeroed, writer-owned Metadata accumulator.
func NewMetadata() *Metadata {
	return &Metadata{
		CommandDistribution: make(map[Command]uint64),
		connections:         make(map[uint16]struct{}),
	}
}

// Observe folds one written event into the rolling metadata. Only the
// writer calls this; see spec.md §4.5.
func (m *Metadata) Observe(e *Event) {
	m.TotalEvents++
	if !m.haveTimestamps {
		m.FirstTimestamp = e.Timestamp
		m.LastTimestamp = e.Timestamp
		m.haveTimestamps = true
	} else {
		if e.Timestamp < m.FirstTimestamp {
			m.FirstTimestamp = e.Timestamp
		}
		if e.Timestamp > m.LastTimestamp {
			m.LastTimestamp = e.Timestamp
		}
	}
	m.CommandDistribution[e.Command]++
	m.connections[e.ConnectionID] = struct{}{}
}

// Finalize fixes UniqueConnections from the distinct-set observed so far.
// Called once, by the writer, at finish().
func (m *Metadata) Finalize() {
	m.UniqueConnections = uint32(len(m.connections))
}
