// Package media identifies and describes playable inputs. A Source wraps
// either a filesystem path or an in-memory byte buffer; everything else in
// the player consumes Sources without caring which form it was given.
package media

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Source is a playable input: a file path or raw bytes.
type Source struct {
	path string
	data []byte
}

// FromPath wraps a filesystem path.
func FromPath(path string) Source {
	return Source{path: path}
}

// FromBytes wraps an in-memory buffer, for embedding without a filesystem.
func FromBytes(data []byte) Source {
	return Source{data: data}
}

// IsBytes reports whether the source is an in-memory buffer.
func (s Source) IsBytes() bool {
	return s.data != nil
}

// Path returns the file path, or "" for byte sources.
func (s Source) Path() string {
	return s.path
}

// Bytes returns the raw buffer, or nil for path sources.
func (s Source) Bytes() []byte {
	return s.data
}

// Name returns a short human-readable label for the source.
func (s Source) Name() string {
	if s.IsBytes() {
		return fmt.Sprintf("<%d bytes>", len(s.data))
	}
	return filepath.Base(s.path)
}

// Ext returns the lowercase extension (without dot) used for classification.
// For byte sources the content is sniffed to an equivalent extension.
func (s Source) Ext() string {
	if s.IsBytes() {
		mt := mimetype.Detect(s.data)
		return strings.TrimPrefix(strings.ToLower(mt.Extension()), ".")
	}
	ext := filepath.Ext(s.path)
	return strings.TrimPrefix(strings.ToLower(ext), ".")
}

// Open returns a fresh seekable reader over the source content. Each caller
// gets its own reader; concurrent opens do not share position.
func (s Source) Open() (io.ReadSeekCloser, error) {
	if s.IsBytes() {
		return nopReadSeekCloser{bytes.NewReader(s.data)}, nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("media: open %q: %w", s.path, err)
	}
	return f, nil
}

type nopReadSeekCloser struct {
	*bytes.Reader
}

func (nopReadSeekCloser) Close() error { return nil }
