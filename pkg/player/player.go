// Package player is the embeddable playback surface. A Player owns one
// media source, its transport state machine, at most one audio worker and
// at most one transcription run. Hosts drive it from a single UI goroutine:
// input events call the transport methods, and every redraw calls Poll
// exactly once, which never blocks.
package player

import (
	"context"
	"errors"
	"time"

	"github.com/tapedeck/tapedeck/internal/audio"
	"github.com/tapedeck/tapedeck/internal/diag"
	"github.com/tapedeck/tapedeck/internal/media"
	"github.com/tapedeck/tapedeck/internal/playback"
	"github.com/tapedeck/tapedeck/internal/transcribe"
	"github.com/tapedeck/tapedeck/internal/transcript"
)

var (
	// ErrUnsupportedMedia is returned when playback is requested for a
	// source whose type could not be classified.
	ErrUnsupportedMedia = errors.New("player: unsupported media type")
	// ErrVideoNotImplemented is returned for video sources; video stays a
	// stub and only the classification exists.
	ErrVideoNotImplemented = errors.New("player: video playback not implemented")
	// ErrNoRecognizer is returned when transcription is requested but no
	// recognizer was configured.
	ErrNoRecognizer = errors.New("player: no recognizer configured")
)

// Frame is what one Poll returns: the transport snapshot plus the
// transcript state accumulated so far. Transcript is shared with the
// player; hosts render it but must not mutate it.
type Frame struct {
	playback.Snapshot
	Transcribing   bool
	TranscriptDone bool
	TranscriptErr  string
	Transcript     []transcribe.Segment
}

// Player is one media player instance. Not safe for concurrent use; all
// methods belong to the host's UI goroutine.
type Player struct {
	src  media.Source
	kind media.Kind

	ctrl     *playback.Controller
	settings transcribe.Settings
	pipeline *transcribe.Pipeline
	recOpts  transcribe.Options
	logger   *diag.Logger

	run            *transcribe.Run
	progress       transcribe.ProgressKind
	transcript     []transcribe.Segment
	transcriptDone bool
	transcriptErr  string
}

// FromPath creates a player over a filesystem path.
func FromPath(path string, opts ...Option) (*Player, error) {
	return New(media.FromPath(path), opts...)
}

// FromBytes creates a player over an in-memory buffer.
func FromBytes(data []byte, opts ...Option) (*Player, error) {
	return New(media.FromBytes(data), opts...)
}

// New creates a player over src. Classification and duration probing
// happen here, once; a probe failure degrades to an unknown (zero) total
// rather than failing construction. An Unsupported source still constructs
// so the host can render the error affordance, but refuses to play.
func New(src media.Source, opts ...Option) (*Player, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	kind := src.Kind()

	var total time.Duration
	if kind == media.KindAudio && o.prober != nil {
		d, err := o.prober.TotalDuration(src)
		if err != nil {
			o.logger.Log(diag.LogEntry{
				Component: diag.ComponentPlayer,
				Event:     diag.EventDurationProbe,
				Payload:   map[string]interface{}{"source": src.Name(), "error": err.Error()},
			})
		} else {
			total = d
		}
	}

	var spawn playback.SpawnFunc
	if kind == media.KindAudio && o.output != nil {
		worker := audio.NewWorker(o.output, o.workerInterval, o.logger)
		spawn = worker.Spawn(src)
	}

	ctrl := playback.NewController(playback.Config{
		Total:           total,
		Clock:           o.clock,
		Spawn:           spawn,
		Volume:          playback.NewVolume(o.volume),
		RepaintInterval: o.repaintInterval,
	})

	var pipeline *transcribe.Pipeline
	if o.recognizer != nil {
		pipeline = transcribe.NewPipeline(o.recognizer, o.fallback, o.windowLen, o.logger)
	}

	return &Player{
		src:      src,
		kind:     kind,
		ctrl:     ctrl,
		settings: o.settings,
		pipeline: pipeline,
		recOpts:  o.recOpts,
		logger:   o.logger,
	}, nil
}

// Kind returns the media classification, fixed at construction.
func (p *Player) Kind() media.Kind {
	return p.kind
}

// Source returns the wrapped source.
func (p *Player) Source() media.Source {
	return p.src
}

// Total returns the probed duration, 0 if unknown.
func (p *Player) Total() time.Duration {
	return p.ctrl.Total()
}

// Settings returns the transcription feature gate.
func (p *Player) Settings() transcribe.Settings {
	return p.settings
}

// Play starts or resumes playback. Unsupported and video sources refuse
// with a typed error instead of entering Playing.
func (p *Player) Play() error {
	switch p.kind {
	case media.KindAudio:
	case media.KindVideo:
		return ErrVideoNotImplemented
	default:
		return ErrUnsupportedMedia
	}
	p.logger.Log(diag.LogEntry{Component: diag.ComponentPlayer, Event: diag.EventPlay})
	p.ctrl.Play()
	return nil
}

// Pause freezes playback and cancels the running generation.
func (p *Player) Pause() {
	p.logger.Log(diag.LogEntry{Component: diag.ComponentPlayer, Event: diag.EventPause})
	p.ctrl.Pause()
}

// Toggle maps the transport button: pause when playing, play otherwise
// (replaying from zero when ended).
func (p *Player) Toggle() error {
	if p.ctrl.State() == playback.StatePlaying {
		p.Pause()
		return nil
	}
	return p.Play()
}

// SeekTo forces the position, pausing playback. This is the slider-drag
// entry point.
func (p *Player) SeekTo(pos time.Duration) {
	p.logger.Log(diag.LogEntry{
		Component: diag.ComponentPlayer,
		Event:     diag.EventSeek,
		Payload:   map[string]interface{}{"pos_ms": pos.Milliseconds()},
	})
	p.ctrl.SeekTo(pos)
}

// ClickSegment seeks to a transcript segment's start and pauses. This is
// the one non-transport control allowed to write playback state.
func (p *Player) ClickSegment(seg transcribe.Segment) {
	p.SeekTo(seg.Start)
}

// SetVolume stores a new 0-100 level on the shared cell.
func (p *Player) SetVolume(level int) {
	p.ctrl.Volume().Set(level)
}

// Volume returns the current volume level.
func (p *Player) Volume() int {
	return p.ctrl.Volume().Level()
}

// Transcribe starts a transcription run. A request while one is active is
// a no-op; a request after a finished run starts a fresh one, appending
// only segments not already held.
func (p *Player) Transcribe(ctx context.Context) error {
	if p.pipeline == nil {
		return ErrNoRecognizer
	}
	if p.settings == transcribe.Disabled {
		return ErrNoRecognizer
	}
	if p.run != nil {
		return nil
	}
	p.progress = transcribe.Reading
	p.transcriptDone = false
	p.transcriptErr = ""
	p.run = p.pipeline.Start(ctx, p.src, p.recOpts)
	return nil
}

// Transcribing reports whether a run is in flight.
func (p *Player) Transcribing() bool {
	return p.run != nil
}

// Poll is the once-per-frame synchronization point: transport snapshot,
// end-of-media transition, and a single non-blocking transcription drain.
func (p *Player) Poll() Frame {
	before := p.ctrl.State()
	snap := p.ctrl.Poll()
	if before == playback.StatePlaying && snap.State == playback.StateEnded {
		p.logger.Log(diag.LogEntry{Component: diag.ComponentPlayer, Event: diag.EventEnded})
	}

	if p.run != nil {
		if ev, ok := p.run.TryRecv(); ok {
			p.progress = ev.Kind
			switch ev.Kind {
			case transcribe.InProgress:
				p.appendSegment(ev.Segment)
			case transcribe.Finished:
				// Drop the subscription on the same frame Finished is seen.
				p.run = nil
				p.transcriptDone = true
				if ev.Err != nil {
					p.transcriptErr = ev.Err.Error()
				}
			}
		}
	}

	return Frame{
		Snapshot:       snap,
		Transcribing:   p.run != nil,
		TranscriptDone: p.transcriptDone,
		TranscriptErr:  p.transcriptErr,
		Transcript:     p.transcript,
	}
}

// SaveTranscript exports the accumulated transcript. basePath is the
// output path without extension; formats are "txt", "srt", "vtt".
func (p *Player) SaveTranscript(basePath string, formats []string) error {
	return transcript.WriteAll(basePath, p.transcript, formats)
}

// Close cancels any live generation and transcription run. The player must
// not be used afterwards.
func (p *Player) Close() {
	if gen := p.ctrl.Generation(); gen != nil {
		gen.Cancel()
	}
	if p.run != nil {
		p.run.Cancel()
		p.run = nil
	}
}

func (p *Player) appendSegment(seg transcribe.Segment) {
	for _, have := range p.transcript {
		if have == seg {
			return
		}
	}
	p.transcript = append(p.transcript, seg)
}
