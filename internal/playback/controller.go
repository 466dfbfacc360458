package playback

import "time"

// SpawnFunc starts an audio worker for one generation. The worker reads the
// volume cell and the generation's stop flag, and reports open/seek
// failures on errs (capacity 1, one shot). A nil SpawnFunc means silent
// playback (tests, video stub).
type SpawnFunc func(gen *Generation, start time.Duration, vol *Volume, errs chan<- error)

// Snapshot is what one frame poll observes. RepaintAfter is nonzero only
// while playing; the host schedules its next redraw after that delay.
type Snapshot struct {
	State        State
	Elapsed      time.Duration
	Total        time.Duration
	Volume       int
	Err          string
	RepaintAfter time.Duration
}

// Config configures a Controller.
type Config struct {
	Total           time.Duration // 0 = unknown, never auto-ends
	Clock           Clock         // nil = wall clock
	Spawn           SpawnFunc     // nil = no audio output
	Volume          *Volume       // nil = fresh cell at 100
	RepaintInterval time.Duration // repaint hint while playing, default 10ms
}

// Controller is the playback state machine. It owns the stopwatch and the
// current generation and must only be used from the UI goroutine; every
// external observation goes through Poll.
type Controller struct {
	clock   Clock
	total   time.Duration
	spawn   SpawnFunc
	vol     *Volume
	repaint time.Duration

	state        State
	sw           Stopwatch
	gen          *Generation
	genSeq       uint64
	startPending bool
	errs         chan error
	lastErr      string
}

// NewController creates a paused controller at position zero.
func NewController(cfg Config) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Volume == nil {
		cfg.Volume = NewVolume(100)
	}
	if cfg.RepaintInterval <= 0 {
		cfg.RepaintInterval = 10 * time.Millisecond
	}
	return &Controller{
		clock:   cfg.Clock,
		total:   cfg.Total,
		spawn:   cfg.Spawn,
		vol:     cfg.Volume,
		repaint: cfg.RepaintInterval,
		state:   StatePaused,
	}
}

// State returns the current transport state.
func (c *Controller) State() State {
	return c.state
}

// Total returns the media duration, 0 if unknown.
func (c *Controller) Total() time.Duration {
	return c.total
}

// Elapsed returns the current position.
func (c *Controller) Elapsed() time.Duration {
	return c.sw.Elapsed(c.clock.Now())
}

// Volume returns the shared volume cell.
func (c *Controller) Volume() *Volume {
	return c.vol
}

// Generation returns the current generation, nil before the first Play.
// Exposed for the owning player and for tests.
func (c *Controller) Generation() *Generation {
	return c.gen
}

// Err returns the last surfaced playback failure, "" if none.
func (c *Controller) Err() string {
	return c.lastErr
}

// Play starts a new generation from the current position. From Ended it
// replays from zero. If the position already meets the total, it moves
// straight to Ended without spawning a worker.
func (c *Controller) Play() {
	now := c.clock.Now()
	switch c.state {
	case StatePlaying:
		return
	case StateEnded:
		c.sw.Set(0)
	}
	if c.total > 0 && c.sw.Elapsed(now) >= c.total {
		c.state = StateEnded
		return
	}

	if c.gen != nil {
		c.gen.Cancel()
	}
	c.genSeq++
	c.gen = newGeneration(c.genSeq)
	c.lastErr = ""
	c.state = StatePlaying
	// Anchor is deferred to the next Poll so the first rendered frame and
	// the stopwatch agree on the start instant.
	c.startPending = true

	if c.spawn != nil {
		c.errs = make(chan error, 1)
		c.spawn(c.gen, c.sw.Elapsed(now), c.vol, c.errs)
	}
}

// Pause cancels the current generation and freezes the position.
func (c *Controller) Pause() {
	now := c.clock.Now()
	if c.gen != nil {
		c.gen.Cancel()
	}
	c.sw.Freeze(now)
	c.startPending = false
	if c.state == StatePlaying {
		c.state = StatePaused
	}
}

// Toggle maps a transport-button press onto the state machine.
func (c *Controller) Toggle() {
	if c.state == StatePlaying {
		c.Pause()
	} else {
		c.Play()
	}
}

// SeekTo forces the position to pos and pauses. Used for the slider drag
// and for transcript-segment clicks; no worker runs after a seek until the
// next Play.
func (c *Controller) SeekTo(pos time.Duration) {
	if pos < 0 {
		pos = 0
	}
	if c.total > 0 && pos > c.total {
		pos = c.total
	}
	if c.gen != nil {
		c.gen.Cancel()
	}
	c.startPending = false
	c.sw.Set(pos)
	c.state = StatePaused
}

// Poll is the once-per-frame synchronization point. It never blocks: it
// drains a pending worker failure, recomputes the position, drives the
// Ended transition and anchors a pending start.
func (c *Controller) Poll() Snapshot {
	now := c.clock.Now()

	if c.errs != nil {
		select {
		case err := <-c.errs:
			if err != nil {
				c.lastErr = err.Error()
				if c.state == StatePlaying {
					c.gen.Cancel()
					c.sw.Freeze(now)
					c.startPending = false
					c.state = StatePaused
				}
			}
		default:
		}
	}

	elapsed := c.sw.Elapsed(now)

	if c.startPending {
		c.sw.Start(now)
		c.startPending = false
	}

	if c.state == StatePlaying && c.total > 0 && elapsed >= c.total {
		c.gen.Cancel()
		c.sw.Set(c.total)
		elapsed = c.total
		c.state = StateEnded
	}

	var repaint time.Duration
	if c.state == StatePlaying {
		repaint = c.repaint
	}

	return Snapshot{
		State:        c.state,
		Elapsed:      elapsed,
		Total:        c.total,
		Volume:       c.vol.Level(),
		Err:          c.lastErr,
		RepaintAfter: repaint,
	}
}
