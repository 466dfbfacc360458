// Package playback implements the transport state machine and the shared
// state it hands to the audio worker: the elapsed-time stopwatch, the
// per-generation stop signal and the volume cell. The Controller itself is
// confined to the UI goroutine; only Volume and Generation cross the
// goroutine boundary, and both are atomic.
package playback

// State is the transport state of one player.
type State int

const (
	// StatePaused is the initial state; no audio worker is running.
	StatePaused State = iota
	// StatePlaying means a generation is live and the stopwatch is running.
	StatePlaying
	// StateEnded is entered when elapsed reaches the total duration.
	StateEnded
)

// String returns the state name for logs and status output.
func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StateEnded:
		return "ended"
	default:
		return "paused"
	}
}
