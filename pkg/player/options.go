package player

import (
	"time"

	"github.com/tapedeck/tapedeck/internal/audio"
	"github.com/tapedeck/tapedeck/internal/diag"
	"github.com/tapedeck/tapedeck/internal/media"
	"github.com/tapedeck/tapedeck/internal/playback"
	"github.com/tapedeck/tapedeck/internal/transcribe"
)

type options struct {
	clock           playback.Clock
	output          audio.Output
	prober          media.Prober
	recognizer      transcribe.Recognizer
	fallback        transcribe.Recognizer
	recOpts         transcribe.Options
	settings        transcribe.Settings
	windowLen       time.Duration
	workerInterval  time.Duration
	repaintInterval time.Duration
	volume          int
	logger          *diag.Logger
}

func defaultOptions() *options {
	return &options{
		clock:  playback.SystemClock(),
		output: audio.NewSpeakerOutput(0),
		prober: audio.DurationProber{},
		volume: 100,
		logger: diag.NewNoOp(),
	}
}

// Option configures a Player at construction.
type Option func(*options)

// WithOutput replaces the speaker output. nil disables audio entirely
// (playback advances the stopwatch but produces no sound).
func WithOutput(o audio.Output) Option {
	return func(opts *options) { opts.output = o }
}

// WithProber replaces the duration prober. nil skips probing, leaving the
// total unknown.
func WithProber(p media.Prober) Option {
	return func(opts *options) { opts.prober = p }
}

// WithClock injects a clock, used by tests to drive time manually.
func WithClock(c playback.Clock) Option {
	return func(opts *options) { opts.clock = c }
}

// WithRecognizer sets the speech recognizer; without one, Transcribe
// returns ErrNoRecognizer.
func WithRecognizer(r transcribe.Recognizer) Option {
	return func(opts *options) { opts.recognizer = r }
}

// WithFallbackRecognizer sets a recognizer tried when the primary cannot
// start a run.
func WithFallbackRecognizer(r transcribe.Recognizer) Option {
	return func(opts *options) { opts.fallback = r }
}

// WithTranscribeOptions sets the per-run recognition options.
func WithTranscribeOptions(o transcribe.Options) Option {
	return func(opts *options) { opts.recOpts = o }
}

// WithSettings sets the transcription feature gate (default Disabled).
func WithSettings(s transcribe.Settings) Option {
	return func(opts *options) { opts.settings = s }
}

// WithWindowLength overrides the recognizer's reported model window length
// when converting chunk-relative times to absolute ones.
func WithWindowLength(d time.Duration) Option {
	return func(opts *options) { opts.windowLen = d }
}

// WithWorkerInterval sets how often the audio worker polls the stop flag
// and volume cell.
func WithWorkerInterval(d time.Duration) Option {
	return func(opts *options) { opts.workerInterval = d }
}

// WithRepaintInterval sets the redraw hint returned while playing.
func WithRepaintInterval(d time.Duration) Option {
	return func(opts *options) { opts.repaintInterval = d }
}

// WithVolume sets the initial volume (default 100).
func WithVolume(level int) Option {
	return func(opts *options) { opts.volume = level }
}

// WithLogger attaches a diagnostic logger.
func WithLogger(l *diag.Logger) Option {
	return func(opts *options) { opts.logger = l }
}
