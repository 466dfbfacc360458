// Package diag provides structured NDJSON diagnostic logging for tapedeck.
// Activated by TAPEDECK_DEBUG=true. When the env var is absent, all Log
// calls are no-ops and no file is created.
package diag

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Component labels.
const (
	ComponentPlayer     = "player"
	ComponentController = "playback-controller"
	ComponentWorker     = "audio-worker"
	ComponentPipeline   = "transcribe-pipeline"
	ComponentConfig     = "config"
	ComponentUI         = "demo-ui"
)

// Event names.
const (
	EventPlay               = "play"
	EventPause              = "pause"
	EventSeek               = "seek"
	EventEnded              = "ended"
	EventWorkerStart        = "worker_start"
	EventWorkerOpenFailed   = "worker_open_failed"
	EventWorkerSeekFailed   = "worker_seek_failed"
	EventWorkerStop         = "worker_stop"
	EventTranscribeStart    = "transcribe_start"
	EventTranscribeSegment  = "transcribe_segment"
	EventTranscribeFinished = "transcribe_finished"
	EventTranscribeFailed   = "transcribe_failed"
	EventConfigReload       = "config_reload"
	EventDurationProbe      = "duration_probe"
)

// LogEntry is one structured event record written as a single JSON line.
type LogEntry struct {
	Timestamp string      `json:"ts"`                   // RFC3339Nano
	Component string      `json:"component"`            // see Component* constants
	Event     string      `json:"event"`                // see Event* constants
	SessionID string      `json:"session_id,omitempty"` // one per Logger
	RunID     string      `json:"run_id,omitempty"`     // one per transcription run
	Payload   interface{} `json:"payload,omitempty"`
}

// Logger writes LogEntry values to a rolling NDJSON file. When debug mode
// is disabled every Log call is a no-op.
type Logger struct {
	rw        *rollingWriter
	mu        sync.Mutex
	enabled   bool
	sessionID string
}

// New opens (or creates) the NDJSON log file at path. If debug mode is
// disabled, path is ignored and a no-op logger is returned. Each enabled
// logger carries a fresh session id stamped on every entry.
func New(path string) (*Logger, error) {
	if !IsDebugEnabled() {
		return &Logger{enabled: false}, nil
	}
	rw, err := newRollingWriter(path, 10*1024*1024)
	if err != nil {
		return nil, err
	}
	return &Logger{rw: rw, enabled: true, sessionID: uuid.NewString()}, nil
}

// NewNoOp returns a logger where every Log call is a no-op. Use as a safe
// fallback when New fails (disk full, permissions error).
func NewNoOp() *Logger {
	return &Logger{enabled: false}
}

// Log serialises entry to JSON, appends a newline, and writes it to the
// rolling file. Safe on a nil or disabled logger.
func (l *Logger) Log(entry LogEntry) {
	if l == nil || !l.enabled {
		return
	}
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if entry.SessionID == "" {
		entry.SessionID = l.sessionID
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.rw.Write(data)
}

// Close flushes and closes the underlying file. Safe on nil/disabled logger.
func (l *Logger) Close() error {
	if l == nil || !l.enabled || l.rw == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rw.close()
}

// IsDebugEnabled reports whether TAPEDECK_DEBUG is set to "true".
func IsDebugEnabled() bool {
	return os.Getenv("TAPEDECK_DEBUG") == "true"
}

// DefaultLogPath is where the demo binary writes diagnostics unless
// TAPEDECK_LOG_PATH overrides it.
func DefaultLogPath() string {
	if p := os.Getenv("TAPEDECK_LOG_PATH"); p != "" {
		return p
	}
	return "/tmp/tapedeck-debug.log"
}
