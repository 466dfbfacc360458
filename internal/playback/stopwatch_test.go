package playback_test

import (
	"testing"
	"time"

	"github.com/tapedeck/tapedeck/internal/playback"
	"github.com/tapedeck/tapedeck/testutil"
)

func TestStopwatchAdvancesWhileRunning(t *testing.T) {
	clock := testutil.NewManualClock()
	var sw playback.Stopwatch

	sw.Start(clock.Now())
	testutil.AssertTrue(t, sw.Running(), "stopwatch should run after Start")

	clock.Advance(3 * time.Second)
	testutil.AssertDuration(t, 3*time.Second, sw.Elapsed(clock.Now()), "elapsed while running")
}

func TestStopwatchFreezeHoldsPosition(t *testing.T) {
	clock := testutil.NewManualClock()
	var sw playback.Stopwatch

	sw.Start(clock.Now())
	clock.Advance(2 * time.Second)
	sw.Freeze(clock.Now())

	clock.Advance(time.Minute)
	testutil.AssertDuration(t, 2*time.Second, sw.Elapsed(clock.Now()), "elapsed after freeze")
	testutil.AssertFalse(t, sw.Running(), "stopwatch should be frozen")
}

func TestStopwatchResumeAccumulates(t *testing.T) {
	clock := testutil.NewManualClock()
	var sw playback.Stopwatch

	sw.Start(clock.Now())
	clock.Advance(2 * time.Second)
	sw.Freeze(clock.Now())
	clock.Advance(10 * time.Second) // paused time must not count

	sw.Start(clock.Now())
	clock.Advance(3 * time.Second)
	testutil.AssertDuration(t, 5*time.Second, sw.Elapsed(clock.Now()), "elapsed across pause")
}

func TestStopwatchSetForcesPosition(t *testing.T) {
	clock := testutil.NewManualClock()
	var sw playback.Stopwatch

	sw.Start(clock.Now())
	clock.Advance(9 * time.Second)

	sw.Set(7 * time.Second)
	testutil.AssertFalse(t, sw.Running(), "Set should freeze the stopwatch")
	testutil.AssertDuration(t, 7*time.Second, sw.Elapsed(clock.Now()), "elapsed after Set")

	sw.Start(clock.Now())
	clock.Advance(time.Second)
	testutil.AssertDuration(t, 8*time.Second, sw.Elapsed(clock.Now()), "elapsed resumes from Set position")
}

func TestStopwatchZeroValueIsFrozenAtZero(t *testing.T) {
	var sw playback.Stopwatch
	testutil.AssertFalse(t, sw.Running(), "zero value should be frozen")
	testutil.AssertDuration(t, 0, sw.Elapsed(time.Now()), "zero value elapsed")
}
