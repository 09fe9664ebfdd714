// Package stats implements the per-connection latency histograms, the
// delta-snapshot protocol, and the aggregator of spec.md §4.11.
package stats

import (
	"github.com/codahale/hdrhistogram"

	"github.com/fsaintjacques/membench/internal/profile"
)

// ErrorKind enumerates the replay-time error counters (spec.md §4.11).
type ErrorKind int

const (
	ErrorTimeout ErrorKind = iota
	ErrorConnection
	ErrorProtocol
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorTimeout:
		return "timeout"
	case ErrorConnection:
		return "connection_error"
	case ErrorProtocol:
		return "protocol_error"
	default:
		return "unknown"
	}
}

const (
	histogramMinMicros = 1
	histogramMaxMicros = 60_000_000 // one minute, generously bounds memcache RTTs
	histogramSigFigs   = 3
)

func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(histogramMinMicros, histogramMaxMicros, histogramSigFigs)
}

// Local is one connection task's mutable statistics state. It is owned
// exclusively by that task, per spec.md §3's concurrency ownership
// summary.
type Local struct {
	histograms    map[profile.Command]*hdrhistogram.Histogram
	successCounts map[profile.Command]uint64
	errorCounts   map[ErrorKind]uint64
}

// NewLocal returns empty per-connection statistics state.
func NewLocal() *Local {
	return &Local{
		histograms:    make(map[profile.Command]*hdrhistogram.Histogram),
		successCounts: make(map[profile.Command]uint64),
		errorCounts:   make(map[ErrorKind]uint64),
	}
}

// RecordSuccess records one successful command's latency, in
// microseconds, against its variant's histogram.
func (l *Local) RecordSuccess(cmd profile.Command, micros int64) {
	h, ok := l.histograms[cmd]
	if !ok {
		h = newHistogram()
		l.histograms[cmd] = h
	}
	h.RecordValue(micros)
	l.successCounts[cmd]++
}

// RecordError increments the counter for kind (spec.md §4.11).
func (l *Local) RecordError(kind ErrorKind) {
	l.errorCounts[kind]++
}

// Snapshot takes a by-value copy of the local state and resets it, per
// the delta-reporting semantics of spec.md §4.11.
func (l *Local) Snapshot(connectionID uint16) Snapshot {
	snap := Snapshot{
		ConnectionID:  connectionID,
		Histograms:    make(map[profile.Command]*hdrhistogram.Histogram, len(l.histograms)),
		SuccessCounts: make(map[profile.Command]uint64, len(l.successCounts)),
		ErrorCounts:   make(map[ErrorKind]uint64, len(l.errorCounts)),
	}
	for cmd, h := range l.histograms {
		snap.Histograms[cmd] = hdrhistogram.Import(h.Export())
	}
	for cmd, c := range l.successCounts {
		snap.SuccessCounts[cmd] = c
	}
	for kind, c := range l.errorCounts {
		snap.ErrorCounts[kind] = c
	}

	l.histograms = make(map[profile.Command]*hdrhistogram.Histogram)
	l.successCounts = make(map[profile.Command]uint64)
	l.errorCounts = make(map[ErrorKind]uint64)

	return snap
}

// Snapshot is a delta report of one connection task's local statistics
// since the previous snapshot (spec.md §GLOSSARY).
type Snapshot struct {
	ConnectionID  uint16
	Histograms    map[profile.Command]*hdrhistogram.Histogram
	SuccessCounts map[profile.Command]uint64
	ErrorCounts   map[ErrorKind]uint64
}
