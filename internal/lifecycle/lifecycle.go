// Package lifecycle provides the single piece of shared mutable state in
// this repo: a cooperative exit flag flipped by a signal handler and read
// by every task (spec.md §3, §9).
package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
)

// ExitFlag is a shared, read-mostly atomic boolean. The signal handler
// installed by Notify is its only writer.
type ExitFlag struct {
	flag atomic.Bool
}

// Set flips the flag. Only the signal handler goroutine should call this.
func (f *ExitFlag) Set() { f.flag.Store(true) }

// IsSet reports whether the flag has been flipped.
func (f *ExitFlag) IsSet() bool { return f.flag.Load() }

// Notify installs an os/signal handler for Ctrl-C (os.Interrupt) that
// flips flag and cancels cancel exactly once, mirroring the
// signal.Notify pattern used throughout the corpus (e.g.
// britram-mokumokuren__tmoku.go, Netflix-rend__blast.go). It returns a
// stop function that releases the signal channel.
func Notify(flag *ExitFlag, cancel context.CancelFunc) (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	done := make(chan struct{})
	go func() {
		select {
		case <-ch:
			flag.Set()
			cancel()
		case <-done:
		}
	}()
	return func() {
		close(done)
		signal.Stop(ch)
	}
}
