// Package pidfile guards against duplicate demo-player instances. The
// audio output device is exclusive, so a second instance refuses to start
// instead of fighting over the speaker.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// PIDFile is one held single-instance lock.
type PIDFile struct {
	path string
	pid  int
}

// Path returns the conventional lock location for the named binary.
func Path(name string) string {
	return filepath.Join(os.Getenv("HOME"), ".cache", "tapedeck", name+".pid")
}

// Acquire creates the PID file, failing when another live process holds
// it. A stale file left by a dead process is replaced.
func Acquire(path string) (*PIDFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("pidfile: create directory: %w", err)
	}

	if data, err := os.ReadFile(path); err == nil {
		pidStr := strings.TrimSpace(string(data))
		if existing, err := strconv.Atoi(pidStr); err == nil {
			if processAlive(existing) {
				return nil, fmt.Errorf("pidfile: another instance is already running (PID %d)", existing)
			}
			if err := os.Remove(path); err != nil {
				return nil, fmt.Errorf("pidfile: remove stale file: %w", err)
			}
		}
	}

	pid := os.Getpid()
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", pid)), 0644); err != nil {
		return nil, fmt.Errorf("pidfile: write: %w", err)
	}
	return &PIDFile{path: path, pid: pid}, nil
}

// Release removes the PID file if it still belongs to this process.
func (p *PIDFile) Release() error {
	if p == nil {
		return nil
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil
	}
	if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && pid == p.pid {
		return os.Remove(p.path)
	}
	return nil
}

// processAlive checks for the process with signal 0; nothing is delivered.
func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	if errors.Is(err, syscall.ESRCH) {
		return false
	}
	// EPERM means the process exists but belongs to someone else.
	return errors.Is(err, syscall.EPERM)
}
