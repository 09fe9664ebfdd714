package profile

import (
	"encoding/binary"
	"fmt"
)

// Wire layout (spec.md §6), all little-endian:
//
//	timestamp       u64
//	connection_id   u16
//	command         u8
//	flags           u8
//	key_hash        u64
//	key_size        u32
//	value_size_tag  u8  (0 absent, 1 present)
//	value_size      u32 (present iff tag == 1)

const (
	eventFixedSize  = 8 + 2 + 1 + 1 + 8 + 4 + 1
	eventValueBytes = 4
)

// EncodedSize returns the number of bytes EncodeEvent will write.
func (e *Event) EncodedSize() int {
	if e.HasValueSize {
		return eventFixedSize + eventValueBytes
	}
	return eventFixedSize
}

// EncodeEvent appends the canonical encoding of e to dst and returns the
// extended slice. The body never includes its own length prefix; callers
// add that separately (see Writer).
func EncodeEvent(dst []byte, e *Event) []byte {
	var hdr [eventFixedSize]byte
	binary.LittleEndian.PutUint64(hdr[0:8], e.Timestamp)
	binary.LittleEndian.PutUint16(hdr[8:10], e.ConnectionID)
	hdr[10] = uint8(e.Command)
	hdr[11] = uint8(e.Flags)
	binary.LittleEndian.PutUint64(hdr[12:20], e.KeyHash)
	binary.LittleEndian.PutUint32(hdr[20:24], e.KeySize)
	if e.HasValueSize {
		hdr[24] = 1
	} else {
		hdr[24] = 0
	}
	dst = append(dst, hdr[:]...)
	if e.HasValueSize {
		var vs [eventValueBytes]byte
		binary.LittleEndian.PutUint32(vs[:], e.ValueSize)
		dst = append(dst, vs[:]...)
	}
	return dst
}

// DecodeEvent parses one event body (without its length prefix) from src.
func DecodeEvent(src []byte) (Event, error) {
	if len(src) < eventFixedSize {
		return Event{}, fmt.Errorf("profile: event body too short (%d bytes)", len(src))
	}
	var e Event
	e.Timestamp = binary.LittleEndian.Uint64(src[0:8])
	e.ConnectionID = binary.LittleEndian.Uint16(src[8:10])
	e.Command = Command(src[10])
	e.Flags = Flags(src[11])
	e.KeyHash = binary.LittleEndian.Uint64(src[12:20])
	e.KeySize = binary.LittleEndian.Uint32(src[20:24])
	tag := src[24]
	switch tag {
	case 0:
		e.HasValueSize = false
	case 1:
		if len(src) < eventFixedSize+eventValueBytes {
			return Event{}, fmt.Errorf("profile: event body truncated before value_size")
		}
		e.HasValueSize = true
		e.ValueSize = binary.LittleEndian.Uint32(src[eventFixedSize : eventFixedSize+eventValueBytes])
	default:
		return Event{}, fmt.Errorf("profile: invalid value_size_tag %d", tag)
	}
	return e, nil
}

// EncodeMetadata appends the canonical encoding of m to dst.
//
//	magic                u32
//	version              u8
//	total_events         u64
//	first_ts             u64
//	last_ts              u64
//	unique_connections   u32
//	command_distribution len-prefixed map of (command u8, count u64)
func EncodeMetadata(dst []byte, m *Metadata) []byte {
	var hdr [4 + 1 + 8 + 8 + 8 + 4]byte
	binary.LittleEndian.PutUint32(hdr[0:4], Magic)
	hdr[4] = Version
	binary.LittleEndian.PutUint64(hdr[5:13], m.TotalEvents)
	binary.LittleEndian.PutUint64(hdr[13:21], m.FirstTimestamp)
	binary.LittleEndian.PutUint64(hdr[21:29], m.LastTimestamp)
	binary.LittleEndian.PutUint32(hdr[29:33], m.UniqueConnections)
	dst = append(dst, hdr[:]...)

	var countHdr [4]byte
	binary.LittleEndian.PutUint32(countHdr[:], uint32(len(m.CommandDistribution)))
	dst = append(dst, countHdr[:]...)

	for cmd, count := range m.CommandDistribution {
		var entry [1 + 8]byte
		entry[0] = uint8(cmd)
		binary.LittleEndian.PutUint64(entry[1:9], count)
		dst = append(dst, entry[:]...)
	}
	return dst
}

// DecodeMetadata parses a metadata body (without its length prefix).
// It validates the magic and version per spec.md §6.
func DecodeMetadata(src []byte) (*Metadata, error) {
	const minHdr = 4 + 1 + 8 + 8 + 8 + 4 + 4
	if len(src) < minHdr {
		return nil, fmt.Errorf("profile: metadata body too short (%d bytes)", len(src))
	}
	magic := binary.LittleEndian.Uint32(src[0:4])
	if magic != Magic {
		return nil, fmt.Errorf("profile: bad metadata magic 0x%x", magic)
	}
	version := src[4]
	if version != Version {
		return nil, fmt.Errorf("profile: unsupported profile version %d (want %d)", version, Version)
	}
	m := NewMetadata()
	m.TotalEvents = binary.LittleEndian.Uint64(src[5:13])
	m.FirstTimestamp = binary.LittleEndian.Uint64(src[13:21])
	m.LastTimestamp = binary.LittleEndian.Uint64(src[21:29])
	m.UniqueConnections = binary.LittleEndian.Uint32(src[29:33])

	count := binary.LittleEndian.Uint32(src[33:37])
	off := 37
	for i := uint32(0); i < count; i++ {
		if off+9 > len(src) {
			return nil, fmt.Errorf("profile: command_distribution truncated")
		}
		cmd := Command(src[off])
		cnt := binary.LittleEndian.Uint64(src[off+1 : off+9])
		m.CommandDistribution[cmd] = cnt
		off += 9
	}
	return m, nil
}
