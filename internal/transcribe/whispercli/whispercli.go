// Package whispercli runs a local whisper.cpp style CLI binary and streams
// its stdout segment lines as they are printed, so segments reach the UI
// while the model is still working through the file.
package whispercli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"syscall"
	"time"

	"github.com/tapedeck/tapedeck/internal/media"
	"github.com/tapedeck/tapedeck/internal/transcribe"
)

// Config configures the whisper CLI recognizer.
type Config struct {
	BinaryPath     string // path to the whisper-cpp CLI
	ModelPath      string // path to the .bin model weights
	Threads        int    // CPU threads (0 = auto)
	TimeoutSeconds int    // default 300
}

// Recognizer shells out to a whisper CLI binary.
type Recognizer struct {
	cfg Config
}

// New creates a whisper CLI recognizer.
func New(cfg Config) *Recognizer {
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 300
	}
	return &Recognizer{cfg: cfg}
}

// Name returns the recognizer identifier.
func (r *Recognizer) Name() string {
	return "whisper_cli"
}

// WindowLength is zero: the CLI prints absolute timestamps.
func (r *Recognizer) WindowLength() time.Duration {
	return 0
}

// segmentLine matches the CLI's default stdout format:
// [00:00:05.240 --> 00:00:09.800]  some text
var segmentLine = regexp.MustCompile(`^\[(\d{2}):(\d{2}):(\d{2})\.(\d{3}) --> (\d{2}):(\d{2}):(\d{2})\.(\d{3})\]\s*(.+)$`)

// Transcribe starts the subprocess and returns a channel of windows, one
// per printed segment. The subprocess tree is killed on context
// cancellation or timeout.
func (r *Recognizer) Transcribe(ctx context.Context, src media.Source, opts transcribe.Options) (<-chan transcribe.Window, error) {
	if _, err := os.Stat(r.cfg.BinaryPath); err != nil {
		return nil, fmt.Errorf("whispercli: binary not found at %q: %w", r.cfg.BinaryPath, err)
	}

	path, cleanup, err := materialize(src)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(r.cfg.BinaryPath, r.buildArgs(path, opts)...)
	// Own process group so the whole tree dies on cancellation.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("whispercli: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cleanup()
		return nil, fmt.Errorf("whispercli: start subprocess: %w", err)
	}

	timeout := time.Duration(r.cfg.TimeoutSeconds) * time.Second
	killCtx, stopKiller := context.WithTimeout(ctx, timeout)
	go func() {
		<-killCtx.Done()
		// stopKiller cancels this context on normal completion; only a
		// timeout or caller cancellation kills the tree.
		if (killCtx.Err() == context.DeadlineExceeded || ctx.Err() != nil) && cmd.Process != nil {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
	}()

	out := make(chan transcribe.Window)
	go func() {
		defer close(out)
		defer cleanup()
		defer stopKiller()

		index := 0
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
		for scanner.Scan() {
			m := segmentLine.FindStringSubmatch(scanner.Text())
			if m == nil {
				continue
			}
			out <- transcribe.Window{Index: index, Chunks: []transcribe.Chunk{{
				Text:  m[9],
				Start: parseStamp(m[1], m[2], m[3], m[4]),
				End:   parseStamp(m[5], m[6], m[7], m[8]),
			}}}
			index++
		}

		if err := cmd.Wait(); err != nil {
			if ctx.Err() != nil {
				out <- transcribe.Window{Err: ctx.Err()}
				return
			}
			if killCtx.Err() == context.DeadlineExceeded {
				out <- transcribe.Window{Err: fmt.Errorf("whispercli: transcription timed out after %d seconds", r.cfg.TimeoutSeconds)}
				return
			}
			out <- transcribe.Window{Err: fmt.Errorf("whispercli: subprocess failed: %w", err)}
		}
	}()

	return out, nil
}

func (r *Recognizer) buildArgs(path string, opts transcribe.Options) []string {
	var args []string
	if r.cfg.ModelPath != "" {
		args = append(args, "--model", r.cfg.ModelPath)
	}
	if opts.Language != "" {
		args = append(args, "--language", opts.Language)
	}
	if r.cfg.Threads > 0 {
		args = append(args, "--threads", strconv.Itoa(r.cfg.Threads))
	}
	args = append(args, path)
	return args
}

// materialize returns a filesystem path for the source, writing byte
// sources to a temp file the subprocess can read.
func materialize(src media.Source) (path string, cleanup func(), err error) {
	if !src.IsBytes() {
		return src.Path(), func() {}, nil
	}
	f, err := os.CreateTemp("", "tapedeck-*."+src.Ext())
	if err != nil {
		return "", nil, fmt.Errorf("whispercli: temp file: %w", err)
	}
	if _, err := f.Write(src.Bytes()); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", nil, fmt.Errorf("whispercli: write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", nil, err
	}
	return f.Name(), func() { _ = os.Remove(f.Name()) }, nil
}

func parseStamp(hh, mm, ss, ms string) time.Duration {
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	s, _ := strconv.Atoi(ss)
	f, _ := strconv.Atoi(ms)
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(f)*time.Millisecond
}
