package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/codahale/hdrhistogram"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/fsaintjacques/membench/internal/profile"
)

// Aggregator is the single owner of the merged histograms and counts for
// a replay run (spec.md §4.11, §5 "Shared resources": "the aggregator
// channel is write-shared across many tasks; no other shared mutable
// resource exists").
type Aggregator struct {
	start         time.Time
	histograms    map[profile.Command]*hdrhistogram.Histogram
	successCounts map[profile.Command]uint64
	errorCounts   map[ErrorKind]uint64
}

// NewAggregator returns an aggregator whose elapsed-time clock starts now.
func NewAggregator() *Aggregator {
	return &Aggregator{
		start:         time.Now(),
		histograms:    make(map[profile.Command]*hdrhistogram.Histogram),
		successCounts: make(map[profile.Command]uint64),
		errorCounts:   make(map[ErrorKind]uint64),
	}
}

// Merge folds one connection task's snapshot into the aggregate state.
func (a *Aggregator) Merge(s Snapshot) {
	for cmd, h := range s.Histograms {
		if existing, ok := a.histograms[cmd]; ok {
			existing.Merge(h)
		} else {
			a.histograms[cmd] = hdrhistogram.Import(h.Export())
		}
	}
	for cmd, c := range s.SuccessCounts {
		a.successCounts[cmd] += c
	}
	for kind, c := range s.ErrorCounts {
		a.errorCounts[kind] += c
	}
}

// TotalOperations sums the per-variant success counts.
func (a *Aggregator) TotalOperations() uint64 {
	var total uint64
	for _, c := range a.successCounts {
		total += c
	}
	return total
}

// TotalErrors sums the per-kind error counts.
func (a *Aggregator) TotalErrors() uint64 {
	var total uint64
	for _, c := range a.errorCounts {
		total += c
	}
	return total
}

// ErrorCount reports the count recorded for one error kind.
func (a *Aggregator) ErrorCount(kind ErrorKind) uint64 {
	return a.errorCounts[kind]
}

// Elapsed returns wall-clock time since the aggregator was created.
func (a *Aggregator) Elapsed() time.Duration { return time.Since(a.start) }

// Throughput returns the aggregate operations-per-second rate so far.
func (a *Aggregator) Throughput() float64 {
	secs := a.Elapsed().Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(a.TotalOperations()) / secs
}

// LogProgress emits the periodic progress line of spec.md §4.11, every 5
// seconds: elapsed, total operations, derived ops/second.
func (a *Aggregator) LogProgress(logger *zap.Logger) {
	logger.Info("replay progress",
		zap.Float64("elapsed_secs", a.Elapsed().Seconds()),
		zap.String("total_operations", humanize.Comma(int64(a.TotalOperations()))),
		zap.Float64("ops_per_sec", a.Throughput()),
	)
}

// OperationSummary is one command variant's exported latency profile.
type OperationSummary struct {
	Count     uint64 `json:"count"`
	P50Micros int64  `json:"p50_micros"`
	P95Micros int64  `json:"p95_micros"`
	P99Micros int64  `json:"p99_micros"`
	MinMicros int64  `json:"min_micros"`
	MaxMicros int64  `json:"max_micros"`
}

// Summary is the final report emitted once all connection tasks have
// ended and their final snapshots received (spec.md §4.11).
type Summary struct {
	ElapsedSecs     float64                     `json:"elapsed_secs"`
	TotalOperations uint64                      `json:"total_operations"`
	Throughput      float64                     `json:"throughput"`
	Operations      map[string]OperationSummary `json:"operations"`
	Errors          map[string]uint64           `json:"errors"`
}

// Summarize builds the final report described in spec.md §4.11.
func (a *Aggregator) Summarize() Summary {
	s := Summary{
		ElapsedSecs:     a.Elapsed().Seconds(),
		TotalOperations: a.TotalOperations(),
		Throughput:      a.Throughput(),
		Operations:      make(map[string]OperationSummary, len(a.histograms)),
		Errors:          make(map[string]uint64, len(a.errorCounts)),
	}
	for cmd, h := range a.histograms {
		s.Operations[cmd.String()] = OperationSummary{
			Count:     a.successCounts[cmd],
			P50Micros: h.ValueAtQuantile(50),
			P95Micros: h.ValueAtQuantile(95),
			P99Micros: h.ValueAtQuantile(99),
			MinMicros: h.Min(),
			MaxMicros: h.Max(),
		}
	}
	for kind, c := range a.errorCounts {
		s.Errors[kind.String()] = c
	}
	return s
}

// WriteJSON writes the summary document described in spec.md §4.11 to w.
func (s Summary) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// PrintText renders the human-readable final summary to w as plain
// fmt.Fprintf lines: one totals line, one line per command variant, and
// one line per error kind.
func (s Summary) PrintText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "elapsed=%.1fs total_operations=%s throughput=%.0f ops/sec\n",
		s.ElapsedSecs, humanize.Comma(int64(s.TotalOperations)), s.Throughput)
	if err != nil {
		return err
	}
	for cmd, op := range s.Operations {
		if _, err := fmt.Fprintf(w, "  %-8s count=%-8d p50=%6dus p95=%6dus p99=%6dus min=%6dus max=%6dus\n",
			cmd, op.Count, op.P50Micros, op.P95Micros, op.P99Micros, op.MinMicros, op.MaxMicros); err != nil {
			return err
		}
	}
	for kind, c := range s.Errors {
		if _, err := fmt.Fprintf(w, "  error %-16s count=%d\n", kind, c); err != nil {
			return err
		}
	}
	return nil
}
