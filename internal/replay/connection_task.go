package replay

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fsaintjacques/membench/internal/memcache"
	"github.com/fsaintjacques/membench/internal/profile"
	"github.com/fsaintjacques/membench/internal/stats"
)

// snapshotInterval is the fixed cadence at which a connection task flushes
// its local statistics to the aggregator (spec.md §4.9).
const snapshotInterval = 2 * time.Second

// connectionTask owns one TCP connection for the whole replay run, reading
// synthesized commands from its inbox and recording their latency. It is
// the direct descendant of the original's connection_task.rs, generalized
// to the richer per-variant response draining of spec.md §4.9.
type connectionTask struct {
	id     uint16
	target string
	mode   memcache.ProtocolMode
	inbox  <-chan profile.Event
	aggCh  chan<- stats.Snapshot
	logger *zap.Logger
}

// run dials the target once and processes inbox until it is closed or ctx
// is canceled, snapshotting every snapshotInterval and once more on exit.
func (t *connectionTask) run(ctx context.Context) error {
	client, err := Dial(t.target)
	if err != nil {
		t.logger.Warn("connection task dial failed", zap.Uint16("connection_id", t.id), zap.Error(err))
		local := stats.NewLocal()
		local.RecordError(stats.ErrorConnection)
		t.aggCh <- local.Snapshot(t.id)
		return nil
	}
	defer client.Close()

	local := stats.NewLocal()
	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()

	flush := func() {
		t.aggCh <- local.Snapshot(t.id)
	}
	defer flush()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			flush()
		case ev, ok := <-t.inbox:
			if !ok {
				return nil
			}
			if fatal := t.process(client, ev, local); fatal {
				t.logger.Warn("connection task ending after connection error", zap.Uint16("connection_id", t.id))
				return nil
			}
		}
	}
}

// process sends one synthesized command, drains its response, and records
// the outcome. It reports fatal=true when the connection itself is broken.
// No per-command timeout is defined in this version (spec.md §5); socket
// errors surface as a connection error, which ends the task.
func (t *connectionTask) process(client *Client, ev profile.Event, local *stats.Local) (fatal bool) {
	start := time.Now()
	sendErr := client.Send(&ev, t.mode)
	var drainErr error
	if sendErr == nil {
		drainErr = client.DrainResponse(ev.Command)
	}
	elapsed := time.Since(start)

	switch {
	case sendErr == nil && drainErr == nil:
		local.RecordSuccess(ev.Command, elapsed.Microseconds())
		return false
	case errors.Is(drainErr, ErrProtocolError):
		local.RecordError(stats.ErrorProtocol)
		return false
	default:
		local.RecordError(stats.ErrorConnection)
		return true
	}
}
