package stats

import (
	"testing"

	"github.com/fsaintjacques/membench/internal/profile"
)

func TestLocalRecordSuccessAccumulates(t *testing.T) {
	l := NewLocal()
	l.RecordSuccess(profile.CommandGet, 100)
	l.RecordSuccess(profile.CommandGet, 200)
	l.RecordSuccess(profile.CommandSet, 50)

	snap := l.Snapshot(1)
	if snap.SuccessCounts[profile.CommandGet] != 2 {
		t.Fatalf("get count = %d, want 2", snap.SuccessCounts[profile.CommandGet])
	}
	if snap.SuccessCounts[profile.CommandSet] != 1 {
		t.Fatalf("set count = %d, want 1", snap.SuccessCounts[profile.CommandSet])
	}
	if snap.Histograms[profile.CommandGet].TotalCount() != 2 {
		t.Fatalf("get histogram count = %d, want 2", snap.Histograms[profile.CommandGet].TotalCount())
	}
}

func TestLocalSnapshotZeroesDelta(t *testing.T) {
	l := NewLocal()
	l.RecordSuccess(profile.CommandGet, 100)
	l.RecordError(ErrorProtocol)

	first := l.Snapshot(1)
	if first.SuccessCounts[profile.CommandGet] != 1 {
		t.Fatalf("first snapshot get count = %d, want 1", first.SuccessCounts[profile.CommandGet])
	}
	if first.ErrorCounts[ErrorProtocol] != 1 {
		t.Fatalf("first snapshot protocol errors = %d, want 1", first.ErrorCounts[ErrorProtocol])
	}

	second := l.Snapshot(1)
	if len(second.SuccessCounts) != 0 {
		t.Fatalf("second snapshot success counts not empty: %+v", second.SuccessCounts)
	}
	if len(second.ErrorCounts) != 0 {
		t.Fatalf("second snapshot error counts not empty: %+v", second.ErrorCounts)
	}
	if len(second.Histograms) != 0 {
		t.Fatalf("second snapshot histograms not empty: %+v", second.Histograms)
	}
}

func TestLocalSnapshotCarriesConnectionID(t *testing.T) {
	l := NewLocal()
	snap := l.Snapshot(42)
	if snap.ConnectionID != 42 {
		t.Fatalf("ConnectionID = %d, want 42", snap.ConnectionID)
	}
}
