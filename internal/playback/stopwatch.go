package playback

import "time"

// Clock abstracts time.Now so the controller and stopwatch can be driven by
// a manual clock in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// Stopwatch tracks the playback position as a wall-clock anchor plus an
// accumulated base. It owns no goroutine: position is a pure read-time
// computation, so there is no writer racing the reader.
type Stopwatch struct {
	anchor time.Time // zero while frozen
	base   time.Duration
}

// Elapsed returns the current position. While running this is
// base + (now - anchor); while frozen it is just base.
func (s *Stopwatch) Elapsed(now time.Time) time.Duration {
	if s.anchor.IsZero() {
		return s.base
	}
	return s.base + now.Sub(s.anchor)
}

// Running reports whether the stopwatch is advancing.
func (s *Stopwatch) Running() bool {
	return !s.anchor.IsZero()
}

// Start anchors the stopwatch at now, carrying the current position forward
// as the new base.
func (s *Stopwatch) Start(now time.Time) {
	s.base = s.Elapsed(now)
	s.anchor = now
}

// Freeze stops the stopwatch, capturing the position at now as the base.
func (s *Stopwatch) Freeze(now time.Time) {
	s.base = s.Elapsed(now)
	s.anchor = time.Time{}
}

// Set freezes the stopwatch at an explicit position (seek, replay).
func (s *Stopwatch) Set(pos time.Duration) {
	s.base = pos
	s.anchor = time.Time{}
}
