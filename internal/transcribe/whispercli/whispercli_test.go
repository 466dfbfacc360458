package whispercli

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/tapedeck/tapedeck/internal/media"
	"github.com/tapedeck/tapedeck/internal/transcribe"
	"github.com/tapedeck/tapedeck/testutil"
)

func TestSegmentLineParsing(t *testing.T) {
	cases := []struct {
		name  string
		line  string
		text  string
		start time.Duration
		end   time.Duration
	}{
		{
			name:  "typical line",
			line:  "[00:00:05.240 --> 00:00:09.800]  And so my fellow Americans",
			text:  "And so my fellow Americans",
			start: 5240 * time.Millisecond,
			end:   9800 * time.Millisecond,
		},
		{
			name:  "past the hour",
			line:  "[01:02:03.004 --> 01:02:05.500] later segment",
			text:  "later segment",
			start: time.Hour + 2*time.Minute + 3*time.Second + 4*time.Millisecond,
			end:   time.Hour + 2*time.Minute + 5*time.Second + 500*time.Millisecond,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := segmentLine.FindStringSubmatch(tc.line)
			testutil.AssertTrue(t, m != nil, "line should match")
			testutil.AssertEqual(t, tc.text, m[9], "text capture")
			testutil.AssertDuration(t, tc.start, parseStamp(m[1], m[2], m[3], m[4]), "start stamp")
			testutil.AssertDuration(t, tc.end, parseStamp(m[5], m[6], m[7], m[8]), "end stamp")
		})
	}
}

func TestSegmentLineIgnoresNoise(t *testing.T) {
	noise := []string{
		"",
		"whisper_init_from_file: loading model",
		"main: processing 'audio.wav' (441000 samples, 10.0 sec)",
		"[00:00:05.240 -> 00:00:09.800] wrong arrow",
	}
	for _, line := range noise {
		testutil.AssertTrue(t, segmentLine.FindStringSubmatch(line) == nil, "noise must not match: "+line)
	}
}

func TestBuildArgs(t *testing.T) {
	r := New(Config{BinaryPath: "/usr/bin/whisper", ModelPath: "/models/base.bin", Threads: 4})
	args := r.buildArgs("/tmp/a.mp3", transcribe.Options{Language: "en"})

	want := []string{"--model", "/models/base.bin", "--language", "en", "--threads", "4", "/tmp/a.mp3"}
	testutil.AssertEqual(t, len(want), len(args), "arg count")
	for i := range want {
		testutil.AssertEqual(t, want[i], args[i], "arg order")
	}
}

func TestMaterializePathSourceIsPassthrough(t *testing.T) {
	path, cleanup, err := materialize(media.FromPath("/music/track.mp3"))
	testutil.AssertNoError(t, err, "materialize path source")
	defer cleanup()
	testutil.AssertEqual(t, "/music/track.mp3", path, "path sources are used in place")
}

func TestMaterializeByteSourceWritesTempFile(t *testing.T) {
	data := []byte("ID3fake mp3 payload")
	path, cleanup, err := materialize(media.FromBytes(data))
	testutil.AssertNoError(t, err, "materialize byte source")

	got, err := os.ReadFile(path)
	testutil.AssertNoError(t, err, "read temp file")
	testutil.AssertEqual(t, string(data), string(got), "temp file content")

	cleanup()
	_, err = os.Stat(path)
	testutil.AssertTrue(t, os.IsNotExist(err), "cleanup removes the temp file")
}

func TestTranscribeMissingBinaryFailsFast(t *testing.T) {
	r := New(Config{BinaryPath: "/nonexistent/whisper"})
	_, err := r.Transcribe(context.Background(), media.FromPath("a.mp3"), transcribe.Options{})
	testutil.AssertError(t, err, "missing binary is a setup failure")
}
