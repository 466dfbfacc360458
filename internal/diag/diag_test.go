package diag_test

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tapedeck/tapedeck/internal/diag"
	"github.com/tapedeck/tapedeck/testutil"
)

func TestDisabledLoggerWritesNothing(t *testing.T) {
	t.Setenv("TAPEDECK_DEBUG", "")
	path := filepath.Join(t.TempDir(), "debug.log")

	logger, err := diag.New(path)
	testutil.AssertNoError(t, err, "disabled logger construction")
	logger.Log(diag.LogEntry{Component: diag.ComponentPlayer, Event: diag.EventPlay})
	testutil.AssertNoError(t, logger.Close(), "close disabled logger")

	_, err = os.Stat(path)
	testutil.AssertTrue(t, os.IsNotExist(err), "no file created while disabled")
}

func TestEnabledLoggerWritesNDJSON(t *testing.T) {
	t.Setenv("TAPEDECK_DEBUG", "true")
	path := filepath.Join(t.TempDir(), "debug.log")

	logger, err := diag.New(path)
	testutil.AssertNoError(t, err, "enabled logger construction")
	logger.Log(diag.LogEntry{Component: diag.ComponentPlayer, Event: diag.EventPlay})
	logger.Log(diag.LogEntry{
		Component: diag.ComponentWorker,
		Event:     diag.EventWorkerStart,
		Payload:   map[string]interface{}{"generation": 1},
	})
	testutil.AssertNoError(t, logger.Close(), "close logger")

	f, err := os.Open(path)
	testutil.AssertNoError(t, err, "open log file")
	defer f.Close()

	var entries []diag.LogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e diag.LogEntry
		testutil.AssertNoError(t, json.Unmarshal(scanner.Bytes(), &e), "each line is valid JSON")
		entries = append(entries, e)
	}
	testutil.AssertEqual(t, 2, len(entries), "entry count")
	testutil.AssertEqual(t, diag.EventPlay, entries[0].Event, "first event")
	testutil.AssertEqual(t, diag.ComponentWorker, entries[1].Component, "second component")
	testutil.AssertTrue(t, entries[0].SessionID != "", "session id stamped")
	testutil.AssertEqual(t, entries[0].SessionID, entries[1].SessionID, "one session id per logger")
	testutil.AssertTrue(t, entries[0].Timestamp != "", "timestamp stamped")
}

func TestNilAndNoOpLoggersAreSafe(t *testing.T) {
	var nilLogger *diag.Logger
	nilLogger.Log(diag.LogEntry{Event: diag.EventPlay})
	testutil.AssertNoError(t, nilLogger.Close(), "nil logger close")

	noop := diag.NewNoOp()
	noop.Log(diag.LogEntry{Event: diag.EventPlay})
	testutil.AssertNoError(t, noop.Close(), "no-op logger close")
}

func TestExportBundlesLogWithHeader(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "debug.log")
	lines := `{"ts":"2026-01-01T00:00:00Z","component":"player","event":"play"}` + "\n" +
		`{"ts":"2026-01-01T00:00:01Z","component":"player","event":"pause"}` + "\n"
	testutil.AssertNoError(t, os.WriteFile(logPath, []byte(lines), 0644), "write log fixture")

	outPath, n, err := diag.Export(logPath, dir)
	testutil.AssertNoError(t, err, "export")
	testutil.AssertEqual(t, 2, n, "exported line count")
	testutil.AssertTrue(t, strings.HasPrefix(filepath.Base(outPath), "tapedeck-diag-"), "export file name")

	data, err := os.ReadFile(outPath)
	testutil.AssertNoError(t, err, "read export")
	exported := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	testutil.AssertEqual(t, 3, len(exported), "header plus log lines")

	var bundle diag.Bundle
	testutil.AssertNoError(t, json.Unmarshal([]byte(exported[0]), &bundle), "header is valid JSON")
	testutil.AssertEqual(t, 2, bundle.EntryCount, "header entry count")
	testutil.AssertEqual(t, logPath, bundle.LogFile, "header log path")
}

func TestExportMissingLogFails(t *testing.T) {
	_, _, err := diag.Export(filepath.Join(t.TempDir(), "absent.log"), t.TempDir())
	testutil.AssertTrue(t, errors.Is(err, os.ErrNotExist), "missing log reported as not-exist")
}
