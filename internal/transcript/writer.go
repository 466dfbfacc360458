// Package transcript exports a finished transcript to plain text and
// subtitle files.
package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tapedeck/tapedeck/internal/transcribe"
)

// WriteText writes a plain text transcript with one segment per line, each
// prefixed by its start timestamp in [HH:MM:SS] format. The file is written
// atomically (temp file + rename) to avoid partial writes.
func WriteText(path string, segments []transcribe.Segment) error {
	var b strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&b, "[%s] %s\n", textStamp(seg.Start.Milliseconds()), strings.TrimSpace(seg.Text))
	}
	return atomicWrite(path, []byte(b.String()))
}

// WriteSRT writes a SubRip (.srt) subtitle file, each segment numbered
// sequentially with HH:MM:SS,mmm start/end timestamps.
func WriteSRT(path string, segments []transcribe.Segment) error {
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", srtStamp(seg.Start.Milliseconds()), srtStamp(seg.End.Milliseconds()))
		fmt.Fprintf(&b, "%s\n", strings.TrimSpace(seg.Text))
	}
	return atomicWrite(path, []byte(b.String()))
}

// WriteVTT writes a WebVTT (.vtt) subtitle file with HH:MM:SS.mmm
// timestamps preceded by the WEBVTT header.
func WriteVTT(path string, segments []transcribe.Segment) error {
	var b strings.Builder
	b.WriteString("WEBVTT\n")
	for _, seg := range segments {
		b.WriteByte('\n')
		fmt.Fprintf(&b, "%s --> %s\n", vttStamp(seg.Start.Milliseconds()), vttStamp(seg.End.Milliseconds()))
		fmt.Fprintf(&b, "%s\n", strings.TrimSpace(seg.Text))
	}
	return atomicWrite(path, []byte(b.String()))
}

// WriteAll writes the transcript in every requested format. basePath is the
// path without extension. Supported formats: "txt", "srt", "vtt"; nil or
// empty defaults to ["txt"]. Returns a combined error listing all failures.
func WriteAll(basePath string, segments []transcribe.Segment, formats []string) error {
	if len(formats) == 0 {
		formats = []string{"txt"}
	}
	var errs []string
	for _, f := range formats {
		var err error
		switch f {
		case "txt":
			err = WriteText(basePath+".txt", segments)
		case "srt":
			err = WriteSRT(basePath+".srt", segments)
		case "vtt":
			err = WriteVTT(basePath+".vtt", segments)
		default:
			errs = append(errs, fmt.Sprintf("unknown format %q", f))
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", f, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("transcript write errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func textStamp(ms int64) string {
	return fmt.Sprintf("%02d:%02d:%02d", ms/3600000, (ms/60000)%60, (ms/1000)%60)
}

func srtStamp(ms int64) string {
	return fmt.Sprintf("%02d:%02d:%02d,%03d", ms/3600000, (ms/60000)%60, (ms/1000)%60, ms%1000)
}

func vttStamp(ms int64) string {
	return fmt.Sprintf("%02d:%02d:%02d.%03d", ms/3600000, (ms/60000)%60, (ms/1000)%60, ms%1000)
}

// atomicWrite writes data to path atomically using a temp file + rename.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, "transcript-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("writing transcript: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("syncing transcript: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing transcript: %w", err)
	}
	tmpFile = nil // prevent defer cleanup

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming transcript: %w", err)
	}
	return nil
}
