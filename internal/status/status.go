// Package status persists a now-playing snapshot so external tooling can
// observe the demo player without talking to it.
package status

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Snapshot is the externally visible player state at one instant.
type Snapshot struct {
	File         string    `json:"file"`
	Kind         string    `json:"kind"`
	State        string    `json:"state"`
	ElapsedMs    int64     `json:"elapsed_ms"`
	TotalMs      int64     `json:"total_ms"`
	Volume       int       `json:"volume"`
	Transcribing bool      `json:"transcribing"`
	Segments     int       `json:"segments"`
	LastError    string    `json:"last_error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Write persists the snapshot to ~/.cache/tapedeck/status.json atomically.
func Write(s *Snapshot) error {
	cacheDir := filepath.Join(os.Getenv("HOME"), ".cache", "tapedeck")
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return err
	}
	return atomicWriteJSON(filepath.Join(cacheDir, "status.json"), s)
}

// Read loads the snapshot written by a running player.
func Read() (*Snapshot, error) {
	path := filepath.Join(os.Getenv("HOME"), ".cache", "tapedeck", "status.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func atomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "status-*.tmp")
	if err != nil {
		return fmt.Errorf("status: temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("status: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("status: rename: %w", err)
	}
	return nil
}
