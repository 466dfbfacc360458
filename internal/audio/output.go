// Package audio owns the playback output boundary: the Output/Stream
// collaborator interfaces, the per-generation worker that drives them, and
// a speaker adapter built on beep. Decoding and device management stay
// behind Output; the worker only opens, seeks, applies volume and stops.
package audio

import (
	"time"

	"github.com/tapedeck/tapedeck/internal/media"
)

// Output opens playable streams for sources. Implementations are expected
// to start audible output as part of Open.
type Output interface {
	Open(src media.Source) (Stream, error)
}

// Stream is one playing stream. All methods are called from the worker
// goroutine that opened it; implementations do not need to be safe for
// concurrent use.
type Stream interface {
	// Seek repositions playback to offset from the start of the media.
	Seek(offset time.Duration) error
	// SetVolume applies a 0-100 level to the output sink.
	SetVolume(level int)
	// Finished reports whether the underlying source has been exhausted.
	Finished() bool
	// Close stops output and releases device resources.
	Close() error
}
