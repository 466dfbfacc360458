package playback

import "sync/atomic"

// Volume is the shared volume cell, 0-100. The UI stores, the audio worker
// loads on every tick. Single writer, so a plain atomic is enough.
type Volume struct {
	level atomic.Int32
}

// NewVolume creates a volume cell clamped to 0-100.
func NewVolume(level int) *Volume {
	v := &Volume{}
	v.Set(level)
	return v
}

// Set stores a new level, clamping to 0-100.
func (v *Volume) Set(level int) {
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}
	v.level.Store(int32(level))
}

// Level returns the most recently stored level.
func (v *Volume) Level() int {
	return int(v.level.Load())
}
