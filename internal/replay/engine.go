// Package replay implements the async replay engine of spec.md §4.8–§4.11:
// a reader task that streams a profile and routes events to per-connection
// tasks, which synthesize and send protocol bytes and record latency, and
// an aggregator that merges per-connection snapshots into a final report.
package replay

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fsaintjacques/membench/internal/lifecycle"
	"github.com/fsaintjacques/membench/internal/memcache"
	"github.com/fsaintjacques/membench/internal/profile"
	"github.com/fsaintjacques/membench/internal/stats"
)

// aggregatorChannelSize is generous: snapshots are small and infrequent
// relative to command throughput (spec.md §5: "the aggregator channel is
// write-shared across many tasks").
const aggregatorChannelSize = 256

// Summary re-exports the aggregator's final report so callers (the CLI)
// need not import internal/stats directly.
type Summary = stats.Summary

// Config configures one replay run.
type Config struct {
	ProfilePath string
	Target      string
	Mode        memcache.ProtocolMode
	Policy      LoopPolicy
	// Deadline, if nonzero, bounds the whole run; on expiry it triggers the
	// same cooperative shutdown as Ctrl-C (spec.md §5). No per-command
	// timeout exists in this version.
	Deadline time.Duration
}

// Run drives the reader task, the dynamically spawned connection tasks,
// and the aggregator to completion, then emits the final summary. It is
// the direct descendant of the original's engine.rs, rebuilt atop
// errgroup.Group + context.Context per spec.md §4.8's concurrency model.
func Run(ctx context.Context, cfg Config, exit *lifecycle.ExitFlag, logger *zap.Logger) (Summary, error) {
	f, err := os.Open(cfg.ProfilePath)
	if err != nil {
		return Summary{}, fmt.Errorf("replay: open profile %q: %w", cfg.ProfilePath, err)
	}
	defer f.Close()
	streamer := profile.NewStreamer(f)

	if cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Deadline)
		defer cancel()
	}

	eg, egCtx := errgroup.WithContext(ctx)
	aggCh := make(chan stats.Snapshot, aggregatorChannelSize)
	aggregator := stats.NewAggregator()

	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		progress := time.NewTicker(5 * time.Second)
		defer progress.Stop()
		for {
			select {
			case snap, ok := <-aggCh:
				if !ok {
					return
				}
				aggregator.Merge(snap)
			case <-progress.C:
				aggregator.LogProgress(logger)
			}
		}
	}()

	disp := newDispatcher(func(id uint16, inbox <-chan profile.Event) {
		task := &connectionTask{
			id:     id,
			target: cfg.Target,
			mode:   cfg.Mode,
			inbox:  inbox,
			aggCh:  aggCh,
			logger: logger,
		}
		eg.Go(func() error { return task.run(egCtx) })
	})

	reader := &readerTask{streamer: streamer, policy: cfg.Policy, disp: disp, exit: exit, logger: logger}
	eg.Go(func() error { return reader.run(egCtx) })

	runErr := eg.Wait()
	close(aggCh)
	<-collectorDone

	summary := aggregator.Summarize()

	if runErr != nil {
		return summary, fmt.Errorf("replay: %w", runErr)
	}

	if err := summary.PrintText(os.Stdout); err != nil {
		return summary, fmt.Errorf("replay: print summary: %w", err)
	}
	logger.Info("replay finished",
		zap.Uint64("total_operations", summary.TotalOperations),
		zap.Float64("throughput", summary.Throughput),
	)

	// A connection failure ends only the task that hit it (spec.md §6:
	// "other tasks continue"), but the run as a whole still reports a
	// non-zero exit.
	if n := aggregator.ErrorCount(stats.ErrorConnection); n > 0 {
		return summary, fmt.Errorf("replay: %d connection task(s) ended with a connection error", n)
	}
	return summary, nil
}

// WriteSummaryJSON is a convenience for callers (the replay CLI's
// --stats-json) that also want the machine-readable report of spec.md §4.11.
func WriteSummaryJSON(w io.Writer, s stats.Summary) error {
	return s.WriteJSON(w)
}
