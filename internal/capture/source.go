// Package capture implements the polymorphic capture source abstraction
// of spec.md §4.1: a live interface, an offline capture file, or (on
// Linux) a kernel socket tap, all behind one minimal contract.
package capture

import (
	"errors"
	"time"
)

// ErrEndOfSource is returned by NextFrame when a finite source (an
// offline file, or a closed kernel stream) has no more frames.
var ErrEndOfSource = errors.New("capture: end of source")

// Frame is one already-decoded TCP payload: every source decodes its own
// link layer with its own library (gopcap for live/offline, the kernel
// tap's own wire format for eBPF) and hands over application bytes plus
// flow identity, rather than raw frame bytes.
type Frame struct {
	Bytes []byte
	// CapturedAt is the capture-time timestamp attached by the source,
	// when available. The record orchestrator does not read it; it stamps
	// every event with time.Now().
	CapturedAt time.Time
	// FlowHint carries per-flow identity alongside Bytes.
	FlowHint FlowHint
}

// FlowHint is the flow identity attached to a Frame. SockID is set only by
// the kernel tap, which has no IP/TCP headers to decode and sets only
// SockID and DstPort; SrcIP and SrcPort stay zero in that case.
type FlowHint struct {
	Valid   bool
	SockID  uint64
	SrcIP   [4]byte
	SrcPort uint16
	DstPort uint16
}

// Stats are best-effort source-level counters (spec.md §4.1).
type Stats struct {
	Received uint64
	Dropped  uint64
	Bytes    uint64
}

// Source is the minimal capability set every capture backend implements.
type Source interface {
	// NextFrame yields the next frame destined for the configured port.
	// Returns ErrEndOfSource when a finite source is exhausted. Any other
	// error is a transient (logged and retried by the caller) or fatal
	// (terminates record) capture error, distinguished by the TransientError
	// wrapper below.
	NextFrame() (Frame, error)
	Describe() string
	IsFinite() bool
	Stats() (Stats, bool)
	Close() error
}

// TransientError marks a capture error the record orchestrator should log
// and continue past, rather than treat as fatal (spec.md §7).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "capture: transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// CapabilityError is returned by the factory when a requested backend is
// unavailable on this platform/build (spec.md §4.1: "the kernel tap is
// unavailable").
type CapabilityError struct {
	Backend string
	Reason  string
}

func (e *CapabilityError) Error() string {
	return "capture: " + e.Backend + " unavailable: " + e.Reason
}
