package replay

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fsaintjacques/membench/internal/lifecycle"
	"github.com/fsaintjacques/membench/internal/profile"
)

// connectionInboxSize bounds each per-connection channel (spec.md §4.8:
// "a bounded channel, e.g. 1000 events").
const connectionInboxSize = 1000

// dispatcher routes streamed events to per-connection inbox channels,
// spawning one connectionTask the first time a connection id is seen.
type dispatcher struct {
	inboxes map[uint16]chan profile.Event
	spawn   func(id uint16, inbox <-chan profile.Event)
}

func newDispatcher(spawn func(id uint16, inbox <-chan profile.Event)) *dispatcher {
	return &dispatcher{inboxes: make(map[uint16]chan profile.Event), spawn: spawn}
}

// route delivers ev to its connection's inbox, creating and spawning the
// connection task on first sight of that connection id. It blocks, honoring
// ctx cancellation, if the inbox is full (backpressure, spec.md §4.8).
func (d *dispatcher) route(ctx context.Context, ev profile.Event) error {
	ch, ok := d.inboxes[ev.ConnectionID]
	if !ok {
		ch = make(chan profile.Event, connectionInboxSize)
		d.inboxes[ev.ConnectionID] = ch
		d.spawn(ev.ConnectionID, ch)
	}
	select {
	case ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// closeAll closes every inbox, signaling connection tasks to drain and
// exit once their backlog is processed.
func (d *dispatcher) closeAll() {
	for _, ch := range d.inboxes {
		close(ch)
	}
}

// readerTask streams a profile through policy's loop semantics, routing
// each event via disp. It is the direct descendant of the original's
// reader_task.rs, generalized to spec.md §4.8's richer loop policies.
type readerTask struct {
	streamer *profile.Streamer
	policy   LoopPolicy
	disp     *dispatcher
	exit     *lifecycle.ExitFlag
	logger   *zap.Logger
}

// run streams events until the loop policy is satisfied, the exit flag is
// flipped, or ctx is canceled, then closes every connection inbox.
func (r *readerTask) run(ctx context.Context) error {
	defer r.disp.closeAll()

	iteration := 0
	for {
		if r.exit.IsSet() || ctx.Err() != nil {
			r.logger.Info("reader task exiting: cooperative shutdown")
			return nil
		}

		ev, err := r.streamer.Next()
		if errors.Is(err, profile.ErrDone) {
			iteration++
			if r.policy.done(iteration) {
				r.logger.Info("reader task exiting: loop policy satisfied", zap.Int("iterations", iteration))
				return nil
			}
			if err := r.streamer.Reset(); err != nil {
				return fmt.Errorf("replay: reset profile for loop: %w", err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("replay: read profile: %w", err)
		}

		if err := r.disp.route(ctx, ev); err != nil {
			r.logger.Info("reader task exiting: context canceled while routing")
			return nil
		}
	}
}
