// Package replay implements the async replay engine of spec.md §4.8–§4.10:
// a reader task that streams a profile and routes events to per-connection
// tasks, which synthesize and send protocol bytes and record latency.
package replay

// LoopMode selects how many times the reader traverses the profile
// (spec.md §GLOSSARY "Loop policy").
type LoopMode int

const (
	LoopOnce LoopMode = iota
	LoopTimes
	LoopInfinite
)

// LoopPolicy pairs a LoopMode with its Times(N) parameter.
type LoopPolicy struct {
	Mode  LoopMode
	Times int
}

// Once is the default, single-pass policy.
func Once() LoopPolicy { return LoopPolicy{Mode: LoopOnce} }

// NTimes replays the profile n times.
func NTimes(n int) LoopPolicy { return LoopPolicy{Mode: LoopTimes, Times: n} }

// Infinite replays forever, until canceled.
func Infinite() LoopPolicy { return LoopPolicy{Mode: LoopInfinite} }

// done reports whether the policy is satisfied once iteration full passes
// over the profile have completed; Infinite never reports done.
func (p LoopPolicy) done(iteration int) bool {
	switch p.Mode {
	case LoopOnce:
		return iteration >= 1
	case LoopTimes:
		return iteration >= p.Times
	default:
		return false
	}
}
