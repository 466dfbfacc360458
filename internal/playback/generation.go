package playback

import "sync/atomic"

// Generation identifies one playback attempt. Each Play action mints a new
// Generation and cancels the previous one, so at most one worker is ever
// live. The stop flag is the only write the UI performs on a running
// worker's state; the worker never writes back.
type Generation struct {
	id   uint64
	stop atomic.Bool
}

func newGeneration(id uint64) *Generation {
	return &Generation{id: id}
}

// ID returns the generation sequence number, for diagnostics.
func (g *Generation) ID() uint64 {
	return g.id
}

// Cancel raises the stop signal. Cancellation is cooperative: the worker
// observes the flag on its next wakeup, within its poll interval.
func (g *Generation) Cancel() {
	g.stop.Store(true)
}

// Cancelled reports whether the stop signal has been raised.
func (g *Generation) Cancelled() bool {
	return g.stop.Load()
}
