package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tapedeck/tapedeck/internal/audio"
	"github.com/tapedeck/tapedeck/internal/media"
	"github.com/tapedeck/tapedeck/internal/transcribe"
)

// FakeOutput is a scripted audio.Output. Opens are counted; OpenErr makes
// every Open fail. Streams it hands out are recorded for inspection.
type FakeOutput struct {
	mu      sync.Mutex
	OpenErr error
	SeekErr error
	opens   int
	streams []*FakeStream
}

// Open returns a fresh FakeStream, or OpenErr when scripted to fail.
func (f *FakeOutput) Open(src media.Source) (audio.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	s := &FakeStream{seekErr: f.SeekErr}
	f.streams = append(f.streams, s)
	return s, nil
}

// Opens returns how many times Open was called.
func (f *FakeOutput) Opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

// Streams returns the streams handed out so far.
func (f *FakeOutput) Streams() []*FakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeStream(nil), f.streams...)
}

// LiveStreams counts handed-out streams not yet closed.
func (f *FakeOutput) LiveStreams() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.streams {
		if !s.Closed() {
			n++
		}
	}
	return n
}

// FakeStream records worker interactions. Safe for concurrent use: the
// worker goroutine writes while the test goroutine reads.
type FakeStream struct {
	seekErr  error
	seekedTo atomic.Int64
	volume   atomic.Int32
	finished atomic.Bool
	closed   atomic.Bool
}

// Seek records the offset, or fails when scripted.
func (s *FakeStream) Seek(offset time.Duration) error {
	if s.seekErr != nil {
		return s.seekErr
	}
	s.seekedTo.Store(int64(offset))
	return nil
}

// SetVolume records the latest level.
func (s *FakeStream) SetVolume(level int) {
	s.volume.Store(int32(level))
}

// Finished reports the scripted exhaustion flag.
func (s *FakeStream) Finished() bool {
	return s.finished.Load()
}

// Close marks the stream released.
func (s *FakeStream) Close() error {
	s.closed.Store(true)
	return nil
}

// SeekedTo returns the last recorded seek offset.
func (s *FakeStream) SeekedTo() time.Duration {
	return time.Duration(s.seekedTo.Load())
}

// Volume returns the last recorded level.
func (s *FakeStream) Volume() int {
	return int(s.volume.Load())
}

// Exhaust marks the underlying source as naturally finished.
func (s *FakeStream) Exhaust() {
	s.finished.Store(true)
}

// Closed reports whether Close was called.
func (s *FakeStream) Closed() bool {
	return s.closed.Load()
}

// FakeRecognizer replays scripted windows. SetupErr fails Transcribe
// immediately; FailAfter >= 0 injects a terminal error after that many
// windows have been emitted.
type FakeRecognizer struct {
	RecName   string
	WindowLen time.Duration
	Windows   []transcribe.Window
	SetupErr  error
	FailAfter int
	FailErr   error

	calls atomic.Int32
}

// Name returns the scripted recognizer name.
func (f *FakeRecognizer) Name() string {
	if f.RecName == "" {
		return "fake"
	}
	return f.RecName
}

// WindowLength returns the scripted model window.
func (f *FakeRecognizer) WindowLength() time.Duration {
	return f.WindowLen
}

// Calls returns how many runs were started.
func (f *FakeRecognizer) Calls() int {
	return int(f.calls.Load())
}

// Transcribe replays the scripted windows on a fresh channel.
func (f *FakeRecognizer) Transcribe(ctx context.Context, src media.Source, opts transcribe.Options) (<-chan transcribe.Window, error) {
	f.calls.Add(1)
	if f.SetupErr != nil {
		return nil, f.SetupErr
	}
	out := make(chan transcribe.Window)
	go func() {
		defer close(out)
		for i, w := range f.Windows {
			if f.FailAfter > 0 && i == f.FailAfter {
				err := f.FailErr
				if err == nil {
					err = errors.New("recognizer failed")
				}
				out <- transcribe.Window{Err: err}
				return
			}
			select {
			case out <- w:
			case <-ctx.Done():
				out <- transcribe.Window{Err: ctx.Err()}
				return
			}
		}
	}()
	return out, nil
}
