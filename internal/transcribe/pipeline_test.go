package transcribe_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tapedeck/tapedeck/internal/diag"
	"github.com/tapedeck/tapedeck/internal/media"
	"github.com/tapedeck/tapedeck/internal/transcribe"
	"github.com/tapedeck/tapedeck/testutil"
)

var testSrc = media.FromPath("interview.mp3")

// drain polls TryRecv the way a frame loop would, collecting events until
// the terminal Finished arrives.
func drain(t *testing.T, run *transcribe.Run, timeout time.Duration) []transcribe.Progress {
	t.Helper()
	var events []transcribe.Progress
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ev, ok := run.TryRecv()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		events = append(events, ev)
		if ev.Kind == transcribe.Finished {
			return events
		}
	}
	t.Fatalf("no Finished event within %v (got %d events)", timeout, len(events))
	return nil
}

func segments(events []transcribe.Progress) []transcribe.Segment {
	var segs []transcribe.Segment
	for _, ev := range events {
		if ev.Kind == transcribe.InProgress {
			segs = append(segs, ev.Segment)
		}
	}
	return segs
}

func TestPipelineEmitsSegmentsThenFinished(t *testing.T) {
	rec := &testutil.FakeRecognizer{
		Windows: []transcribe.Window{
			{Index: 0, Chunks: []transcribe.Chunk{
				{Text: "hello", Start: 0, End: 2 * time.Second},
				{Text: "world", Start: 2 * time.Second, End: 4 * time.Second},
			}},
		},
	}
	p := transcribe.NewPipeline(rec, nil, 0, diag.NewNoOp())

	run := p.Start(context.Background(), testSrc, transcribe.Options{})
	events := drain(t, run, 2*time.Second)

	segs := segments(events)
	testutil.AssertEqual(t, 2, len(segs), "segment count")
	testutil.AssertEqual(t, "hello", segs[0].Text, "first segment text")
	testutil.AssertEqual(t, "world", segs[1].Text, "second segment text")

	last := events[len(events)-1]
	testutil.AssertEqual(t, transcribe.Finished, last.Kind, "terminal event")
	testutil.AssertNoError(t, last.Err, "successful run")

	finished := 0
	for _, ev := range events {
		if ev.Kind == transcribe.Finished {
			finished++
		}
	}
	testutil.AssertEqual(t, 1, finished, "exactly one Finished per run")
}

func TestPipelineInterleavesReadingHeartbeats(t *testing.T) {
	rec := &testutil.FakeRecognizer{
		Windows: []transcribe.Window{
			{Index: 0, Chunks: []transcribe.Chunk{{Text: "a", End: time.Second}}},
		},
	}
	p := transcribe.NewPipeline(rec, nil, 0, diag.NewNoOp())

	events := drain(t, p.Start(context.Background(), testSrc, transcribe.Options{}), 2*time.Second)

	kinds := make([]transcribe.ProgressKind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}
	want := []transcribe.ProgressKind{transcribe.InProgress, transcribe.Reading, transcribe.Finished}
	testutil.AssertEqual(t, len(want), len(kinds), "event count")
	for i := range want {
		testutil.AssertEqual(t, want[i], kinds[i], "event order")
	}
}

func TestPipelineAppliesWindowOffsets(t *testing.T) {
	rec := &testutil.FakeRecognizer{
		WindowLen: 30 * time.Second,
		Windows: []transcribe.Window{
			{Index: 0, Chunks: []transcribe.Chunk{{Text: "first", Start: 5 * time.Second, End: 8 * time.Second}}},
			{Index: 1, Chunks: []transcribe.Chunk{{Text: "second", Start: 5 * time.Second, End: 8 * time.Second}}},
		},
	}
	p := transcribe.NewPipeline(rec, nil, 0, diag.NewNoOp())

	segs := segments(drain(t, p.Start(context.Background(), testSrc, transcribe.Options{}), 2*time.Second))
	testutil.AssertEqual(t, 2, len(segs), "segment count")
	testutil.AssertDuration(t, 5*time.Second, segs[0].Start, "window 0 keeps its local time")
	testutil.AssertDuration(t, 35*time.Second, segs[1].Start, "window 1 shifted by one window length")
	testutil.AssertDuration(t, 38*time.Second, segs[1].End, "window 1 end shifted too")
}

func TestPipelineWindowLengthOverride(t *testing.T) {
	rec := &testutil.FakeRecognizer{
		WindowLen: 30 * time.Second,
		Windows: []transcribe.Window{
			{Index: 1, Chunks: []transcribe.Chunk{{Text: "late", Start: time.Second, End: 2 * time.Second}}},
		},
	}
	p := transcribe.NewPipeline(rec, nil, 10*time.Second, diag.NewNoOp())

	segs := segments(drain(t, p.Start(context.Background(), testSrc, transcribe.Options{}), 2*time.Second))
	testutil.AssertDuration(t, 11*time.Second, segs[0].Start, "override beats the recognizer's window")
}

func TestPipelineSetupFailureStillFinishes(t *testing.T) {
	rec := &testutil.FakeRecognizer{SetupErr: errors.New("model missing")}
	p := transcribe.NewPipeline(rec, nil, 0, diag.NewNoOp())

	events := drain(t, p.Start(context.Background(), testSrc, transcribe.Options{}), 2*time.Second)
	testutil.AssertEqual(t, 1, len(events), "only the terminal event")
	testutil.AssertEqual(t, transcribe.Finished, events[0].Kind, "terminal event kind")
	testutil.AssertError(t, events[0].Err, "failure carried on Finished")
}

func TestPipelineMidRunFailureFinishesWithError(t *testing.T) {
	rec := &testutil.FakeRecognizer{
		Windows: []transcribe.Window{
			{Index: 0, Chunks: []transcribe.Chunk{{Text: "partial", End: time.Second}}},
			{Index: 1, Chunks: []transcribe.Chunk{{Text: "never seen", End: time.Second}}},
		},
		FailAfter: 1,
		FailErr:   errors.New("decoder choked"),
	}
	p := transcribe.NewPipeline(rec, nil, 0, diag.NewNoOp())

	events := drain(t, p.Start(context.Background(), testSrc, transcribe.Options{}), 2*time.Second)
	segs := segments(events)
	testutil.AssertEqual(t, 1, len(segs), "segments before the failure survive")
	last := events[len(events)-1]
	testutil.AssertEqual(t, transcribe.Finished, last.Kind, "failed run still terminates")
	testutil.AssertError(t, last.Err, "failure carried on Finished")
}

func TestPipelineFallsBackWhenPrimaryCannotStart(t *testing.T) {
	primary := &testutil.FakeRecognizer{RecName: "primary", SetupErr: errors.New("binary not found")}
	fallback := &testutil.FakeRecognizer{
		RecName: "fallback",
		Windows: []transcribe.Window{
			{Index: 0, Chunks: []transcribe.Chunk{{Text: "rescued", End: time.Second}}},
		},
	}
	p := transcribe.NewPipeline(primary, fallback, 0, diag.NewNoOp())

	events := drain(t, p.Start(context.Background(), testSrc, transcribe.Options{}), 2*time.Second)
	segs := segments(events)
	testutil.AssertEqual(t, 1, len(segs), "fallback produced the transcript")
	testutil.AssertEqual(t, "rescued", segs[0].Text, "fallback segment text")
	testutil.AssertNoError(t, events[len(events)-1].Err, "fallback run succeeds")
	testutil.AssertEqual(t, 1, primary.Calls(), "primary tried once")
	testutil.AssertEqual(t, 1, fallback.Calls(), "fallback tried once")
}

func TestPipelineCancelReleasesConsumer(t *testing.T) {
	windows := make([]transcribe.Window, 1000)
	for i := range windows {
		windows[i] = transcribe.Window{Index: i, Chunks: []transcribe.Chunk{{Text: "tick", End: time.Second}}}
	}
	rec := &testutil.FakeRecognizer{Windows: windows}
	p := transcribe.NewPipeline(rec, nil, 0, diag.NewNoOp())

	run := p.Start(context.Background(), testSrc, transcribe.Options{})
	run.Cancel()

	events := drain(t, run, 2*time.Second)
	last := events[len(events)-1]
	testutil.AssertEqual(t, transcribe.Finished, last.Kind, "cancelled run still terminates")
	testutil.AssertError(t, last.Err, "cancellation reported as the run error")
}

func TestTryRecvNeverBlocks(t *testing.T) {
	rec := &testutil.FakeRecognizer{}
	p := transcribe.NewPipeline(rec, nil, 0, diag.NewNoOp())

	run := p.Start(context.Background(), testSrc, transcribe.Options{})
	events := drain(t, run, 2*time.Second)
	testutil.AssertEqual(t, transcribe.Finished, events[len(events)-1].Kind, "empty run finishes")

	// Exhausted run: further polls report nothing pending.
	_, ok := run.TryRecv()
	testutil.AssertFalse(t, ok, "drained run has no events")
}
