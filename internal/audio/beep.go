package audio

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"

	"github.com/tapedeck/tapedeck/internal/media"
)

// SpeakerOutput is the real Output, decoding with beep and playing through
// the default device. One stream at a time: Open reinitialises the speaker
// for the new stream's sample rate and Close clears it.
type SpeakerOutput struct {
	bufferLen time.Duration
}

// NewSpeakerOutput creates a speaker-backed output. bufferLen <= 0 uses a
// 100ms device buffer.
func NewSpeakerOutput(bufferLen time.Duration) *SpeakerOutput {
	if bufferLen <= 0 {
		bufferLen = 100 * time.Millisecond
	}
	return &SpeakerOutput{bufferLen: bufferLen}
}

// Open decodes src and starts audible playback at full volume.
func (o *SpeakerOutput) Open(src media.Source) (Stream, error) {
	r, err := src.Open()
	if err != nil {
		return nil, err
	}
	ssc, format, err := decode(src.Ext(), r)
	if err != nil {
		_ = r.Close()
		return nil, err
	}

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(o.bufferLen)); err != nil {
		_ = ssc.Close()
		return nil, fmt.Errorf("audio: speaker init: %w", err)
	}

	vol := &effects.Volume{Streamer: ssc, Base: 2}
	speaker.Play(vol)

	return &speakerStream{ssc: ssc, format: format, vol: vol, lastLevel: -1}, nil
}

func decode(ext string, r io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
	switch ext {
	case "mp3":
		return mp3.Decode(r)
	case "wav":
		return wav.Decode(r)
	case "flac":
		return flac.Decode(r)
	default:
		return nil, beep.Format{}, fmt.Errorf("audio: no decoder for %q", ext)
	}
}

type speakerStream struct {
	ssc       beep.StreamSeekCloser
	format    beep.Format
	vol       *effects.Volume
	lastLevel int
}

func (s *speakerStream) Seek(offset time.Duration) error {
	speaker.Lock()
	defer speaker.Unlock()
	n := s.format.SampleRate.N(offset)
	if max := s.ssc.Len(); n > max {
		n = max
	}
	if n < 0 {
		n = 0
	}
	if err := s.ssc.Seek(n); err != nil {
		return fmt.Errorf("audio: seek: %w", err)
	}
	return nil
}

func (s *speakerStream) SetVolume(level int) {
	if level == s.lastLevel {
		return
	}
	s.lastLevel = level
	speaker.Lock()
	if level <= 0 {
		s.vol.Silent = true
	} else {
		s.vol.Silent = false
		// 100 maps to unity gain, halving the level drops one Base unit.
		s.vol.Volume = math.Log2(float64(level) / 100)
	}
	speaker.Unlock()
}

func (s *speakerStream) Finished() bool {
	speaker.Lock()
	defer speaker.Unlock()
	return s.ssc.Position() >= s.ssc.Len()
}

func (s *speakerStream) Close() error {
	speaker.Clear()
	return s.ssc.Close()
}

// DurationProber probes total duration by decoding headers with beep.
// It satisfies media.Prober; failure is non-fatal for callers.
type DurationProber struct{}

// TotalDuration decodes src far enough to learn its length.
func (DurationProber) TotalDuration(src media.Source) (time.Duration, error) {
	r, err := src.Open()
	if err != nil {
		return 0, err
	}
	ssc, format, err := decode(src.Ext(), r)
	if err != nil {
		_ = r.Close()
		return 0, err
	}
	defer func() { _ = ssc.Close() }()

	n := ssc.Len()
	if n < 0 {
		return 0, fmt.Errorf("audio: stream length unknown")
	}
	return format.SampleRate.D(n), nil
}
