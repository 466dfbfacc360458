package transcribe

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tapedeck/tapedeck/internal/diag"
	"github.com/tapedeck/tapedeck/internal/media"
)

// Run is one in-flight transcription. The consumer polls TryRecv once per
// frame and drops the Run when it observes Finished.
type Run struct {
	ID     string
	events <-chan Progress
	cancel context.CancelFunc
}

// TryRecv performs one non-blocking receive. ok is false when no event is
// pending this frame.
func (r *Run) TryRecv() (Progress, bool) {
	select {
	case ev, open := <-r.events:
		if !open {
			return Progress{}, false
		}
		return ev, true
	default:
		return Progress{}, false
	}
}

// Cancel aborts the run. The pipeline still emits its terminal Finished
// event so the consumer side is released.
func (r *Run) Cancel() {
	r.cancel()
}

// Pipeline starts transcription runs. If the primary recognizer fails to
// start, the fallback (when configured) is tried before the run is
// declared failed.
type Pipeline struct {
	primary   Recognizer
	fallback  Recognizer
	windowLen time.Duration // override; 0 = recognizer's own
	logger    *diag.Logger
}

// NewPipeline creates a pipeline. fallback may be nil. windowLen overrides
// the recognizer-reported window length when positive.
func NewPipeline(primary, fallback Recognizer, windowLen time.Duration, logger *diag.Logger) *Pipeline {
	return &Pipeline{primary: primary, fallback: fallback, windowLen: windowLen, logger: logger}
}

// Start begins one asynchronous run over src. It never blocks; all outcomes
// including immediate setup failures arrive on the run's event stream, so
// the consumer contract is uniform.
func (p *Pipeline) Start(ctx context.Context, src media.Source, opts Options) *Run {
	ctx, cancel := context.WithCancel(ctx)
	in, out := unbounded()
	run := &Run{ID: uuid.NewString(), events: out, cancel: cancel}

	p.logger.Log(diag.LogEntry{
		Component: diag.ComponentPipeline,
		Event:     diag.EventTranscribeStart,
		RunID:     run.ID,
		Payload:   map[string]interface{}{"source": src.Name(), "recognizer": p.primary.Name()},
	})

	go p.run(ctx, run.ID, src, opts, in)
	return run
}

func (p *Pipeline) run(ctx context.Context, runID string, src media.Source, opts Options, in chan<- Progress) {
	defer close(in)

	rec := p.primary
	windows, err := rec.Transcribe(ctx, src, opts)
	if err != nil && p.fallback != nil {
		p.logger.Log(diag.LogEntry{
			Component: diag.ComponentPipeline,
			Event:     diag.EventTranscribeFailed,
			RunID:     runID,
			Payload:   map[string]interface{}{"recognizer": rec.Name(), "error": err.Error(), "fallback": p.fallback.Name()},
		})
		rec = p.fallback
		windows, err = rec.Transcribe(ctx, src, opts)
	}
	if err != nil {
		p.finish(runID, in, err)
		return
	}

	winLen := p.windowLen
	if winLen <= 0 {
		winLen = rec.WindowLength()
	}

	for w := range windows {
		if w.Err != nil {
			p.finish(runID, in, w.Err)
			return
		}
		// Chunk times are window-relative; the absolute start is the
		// window index times the model's window length.
		offset := time.Duration(w.Index) * winLen
		for _, c := range w.Chunks {
			seg := Segment{Text: c.Text, Start: offset + c.Start, End: offset + c.End}
			in <- Progress{Kind: InProgress, Segment: seg}
			in <- Progress{Kind: Reading}
			p.logger.Log(diag.LogEntry{
				Component: diag.ComponentPipeline,
				Event:     diag.EventTranscribeSegment,
				RunID:     runID,
				Payload:   map[string]interface{}{"start_ms": seg.Start.Milliseconds(), "chars": len(seg.Text)},
			})
		}
	}

	p.finish(runID, in, ctx.Err())
}

func (p *Pipeline) finish(runID string, in chan<- Progress, err error) {
	event := diag.EventTranscribeFinished
	var payload map[string]interface{}
	if err != nil {
		event = diag.EventTranscribeFailed
		payload = map[string]interface{}{"error": err.Error()}
	}
	p.logger.Log(diag.LogEntry{
		Component: diag.ComponentPipeline,
		Event:     event,
		RunID:     runID,
		Payload:   payload,
	})
	in <- Progress{Kind: Finished, Err: err}
}
