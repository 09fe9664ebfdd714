package stats

import (
	"bytes"
	"testing"

	"github.com/fsaintjacques/membench/internal/profile"
)

func TestAggregatorMergeConservesTotals(t *testing.T) {
	a := NewAggregator()

	l1 := NewLocal()
	l1.RecordSuccess(profile.CommandGet, 100)
	l1.RecordSuccess(profile.CommandGet, 150)
	l1.RecordError(ErrorConnection)
	a.Merge(l1.Snapshot(1))

	l2 := NewLocal()
	l2.RecordSuccess(profile.CommandGet, 120)
	l2.RecordSuccess(profile.CommandSet, 200)
	a.Merge(l2.Snapshot(2))

	if got := a.TotalOperations(); got != 4 {
		t.Fatalf("TotalOperations = %d, want 4", got)
	}
	if got := a.TotalErrors(); got != 1 {
		t.Fatalf("TotalErrors = %d, want 1", got)
	}
	if got := a.ErrorCount(ErrorConnection); got != 1 {
		t.Fatalf("ErrorCount(connection) = %d, want 1", got)
	}

	summary := a.Summarize()
	if summary.TotalOperations != 4 {
		t.Fatalf("summary.TotalOperations = %d, want 4", summary.TotalOperations)
	}
	if summary.Operations["get"].Count != 3 {
		t.Fatalf("get count = %d, want 3", summary.Operations["get"].Count)
	}
	if summary.Operations["set"].Count != 1 {
		t.Fatalf("set count = %d, want 1", summary.Operations["set"].Count)
	}
}

func TestAggregatorMergeAcrossMultipleSnapshotsSameConnection(t *testing.T) {
	a := NewAggregator()
	l := NewLocal()

	l.RecordSuccess(profile.CommandGet, 100)
	a.Merge(l.Snapshot(1))

	l.RecordSuccess(profile.CommandGet, 200)
	l.RecordSuccess(profile.CommandGet, 300)
	a.Merge(l.Snapshot(1))

	if got := a.TotalOperations(); got != 3 {
		t.Fatalf("TotalOperations = %d, want 3", got)
	}
	h := a.histograms[profile.CommandGet]
	if h.TotalCount() != 3 {
		t.Fatalf("merged histogram count = %d, want 3", h.TotalCount())
	}
}

func TestSummaryWriteJSONAndPrintText(t *testing.T) {
	a := NewAggregator()
	l := NewLocal()
	l.RecordSuccess(profile.CommandGet, 100)
	l.RecordError(ErrorTimeout)
	a.Merge(l.Snapshot(1))
	summary := a.Summarize()

	var jsonBuf bytes.Buffer
	if err := summary.WriteJSON(&jsonBuf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if jsonBuf.Len() == 0 {
		t.Fatal("WriteJSON produced no output")
	}

	var textBuf bytes.Buffer
	if err := summary.PrintText(&textBuf); err != nil {
		t.Fatalf("PrintText: %v", err)
	}
	if textBuf.Len() == 0 {
		t.Fatal("PrintText produced no output")
	}
}

func TestAggregatorEmptySummaryHasZeroTotals(t *testing.T) {
	a := NewAggregator()
	summary := a.Summarize()
	if summary.TotalOperations != 0 {
		t.Fatalf("TotalOperations = %d, want 0", summary.TotalOperations)
	}
	if len(summary.Operations) != 0 {
		t.Fatalf("Operations not empty: %+v", summary.Operations)
	}
}
