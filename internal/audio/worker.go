package audio

import (
	"fmt"
	"time"

	"github.com/tapedeck/tapedeck/internal/diag"
	"github.com/tapedeck/tapedeck/internal/media"
	"github.com/tapedeck/tapedeck/internal/playback"
)

// DefaultPollInterval bounds how long a cancelled worker keeps playing.
const DefaultPollInterval = 50 * time.Millisecond

// Worker drives one playback generation on its own goroutine. It is
// fire-and-forget: it reads the volume cell and the generation's stop flag,
// never writes shared playback state, and reports nothing on normal exit.
// Open and seek failures are its only feedback, sent once on errs.
type Worker struct {
	output   Output
	interval time.Duration
	logger   *diag.Logger
}

// NewWorker creates a worker factory over an output. interval <= 0 uses
// DefaultPollInterval.
func NewWorker(output Output, interval time.Duration, logger *diag.Logger) *Worker {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Worker{output: output, interval: interval, logger: logger}
}

// Spawn returns a playback.SpawnFunc bound to src.
func (w *Worker) Spawn(src media.Source) playback.SpawnFunc {
	return func(gen *playback.Generation, start time.Duration, vol *playback.Volume, errs chan<- error) {
		go w.run(src, gen, start, vol, errs)
	}
}

func (w *Worker) run(src media.Source, gen *playback.Generation, start time.Duration, vol *playback.Volume, errs chan<- error) {
	w.logger.Log(diag.LogEntry{
		Component: diag.ComponentWorker,
		Event:     diag.EventWorkerStart,
		Payload:   map[string]interface{}{"generation": gen.ID(), "start_ms": start.Milliseconds()},
	})

	stream, err := w.output.Open(src)
	if err != nil {
		w.logger.Log(diag.LogEntry{
			Component: diag.ComponentWorker,
			Event:     diag.EventWorkerOpenFailed,
			Payload:   map[string]interface{}{"generation": gen.ID(), "error": err.Error()},
		})
		w.report(errs, fmt.Errorf("audio: open %s: %w", src.Name(), err))
		return
	}
	defer func() { _ = stream.Close() }()

	if start > 0 {
		if err := stream.Seek(start); err != nil {
			// Reported like an open failure; the controller pauses on its
			// next poll and this worker runs until it sees the cancel flag.
			w.logger.Log(diag.LogEntry{
				Component: diag.ComponentWorker,
				Event:     diag.EventWorkerSeekFailed,
				Payload:   map[string]interface{}{"generation": gen.ID(), "error": err.Error()},
			})
			w.report(errs, fmt.Errorf("audio: seek to %s: %w", start, err))
		}
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	reason := "cancelled"
	for {
		stream.SetVolume(vol.Level())
		if gen.Cancelled() {
			break
		}
		if stream.Finished() {
			reason = "exhausted"
			break
		}
		<-ticker.C
	}

	w.logger.Log(diag.LogEntry{
		Component: diag.ComponentWorker,
		Event:     diag.EventWorkerStop,
		Payload:   map[string]interface{}{"generation": gen.ID(), "reason": reason},
	})
}

// report delivers err without blocking; the channel has capacity one and
// the controller only reads the first failure per generation.
func (w *Worker) report(errs chan<- error, err error) {
	select {
	case errs <- err:
	default:
	}
}
