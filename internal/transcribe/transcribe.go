// Package transcribe turns a media source into an ordered stream of
// timestamped text segments. Recognizers produce chunked text with
// window-relative times; the Pipeline converts those to absolute segments
// and reports progress over a single-producer single-consumer stream that
// always terminates with exactly one Finished event.
package transcribe

import (
	"context"
	"fmt"
	"time"

	"github.com/tapedeck/tapedeck/internal/media"
)

// Settings gates whether and how the transcript feature is offered.
type Settings int

const (
	// Disabled hides every transcription affordance.
	Disabled Settings = iota
	// Enabled allows requesting a transcription without rendering it inline.
	Enabled
	// EnabledWithLabel renders the transcript as clickable plain text.
	EnabledWithLabel
	// EnabledWithTimestamps renders each segment with its time range.
	EnabledWithTimestamps
)

// Segment is one transcribed span with absolute timing from the start of
// the media.
type Segment struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Label renders the segment for display under the given settings.
func (s Segment) Label(settings Settings) string {
	if settings == EnabledWithTimestamps {
		return fmt.Sprintf("%s-%s: %s\n",
			media.FormatDuration(s.Start), media.FormatDuration(s.End), s.Text)
	}
	return s.Text
}

// ProgressKind tags one event on the progress stream.
type ProgressKind int

const (
	// NoProgress is the zero value before any run has been started.
	NoProgress ProgressKind = iota
	// Reading is a liveness heartbeat with no new segment.
	Reading
	// InProgress carries one newly transcribed segment.
	InProgress
	// Finished is terminal. It is emitted exactly once per run, for both
	// successful and failed runs; Err carries the failure if any.
	Finished
)

// String returns the kind name for logs.
func (k ProgressKind) String() string {
	switch k {
	case Reading:
		return "reading"
	case InProgress:
		return "in_progress"
	case Finished:
		return "finished"
	default:
		return "no_progress"
	}
}

// Progress is one event on a run's stream.
type Progress struct {
	Kind    ProgressKind
	Segment Segment // set when Kind == InProgress
	Err     error   // set on a failed run's Finished event
}

// Chunk is one recognizer-produced span. Times are relative to the
// enclosing window for windowed recognizers, absolute otherwise.
type Chunk struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Window is one batch of chunks from a recognizer. A Window with Err set
// is terminal: the recognizer failed mid-run.
type Window struct {
	Index  int
	Chunks []Chunk
	Err    error
}

// Options configures one transcription run.
type Options struct {
	Language   string // "" = auto-detect
	Model      string // recognizer-specific model name
	Timestamps bool
}

// Recognizer is the speech-to-text collaborator. WindowLength is the fixed
// model window that chunk-relative times are measured against; 0 means the
// recognizer already reports absolute times.
type Recognizer interface {
	Name() string
	WindowLength() time.Duration
	Transcribe(ctx context.Context, src media.Source, opts Options) (<-chan Window, error)
}
