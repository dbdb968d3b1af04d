package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ActivityLog appends newline-delimited JSON diagnostic records to
// .lls_activity.log (SPEC_FULL.md component M), giving error kinds 3
// (config load failure) and 4 (edit/dispatch failure) a record that
// survives the process even if the user never runs the `err` verb.
type ActivityLog struct {
	mu        sync.Mutex
	file      *os.File
	sessionID string
}

// ActivityRecord is one ndjson line. SessionID groups every record written
// by one lls invocation, since the log file itself is append-only and
// accumulates across runs.
type ActivityRecord struct {
	Time      time.Time `json:"time"`
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
}

// OpenActivityLog opens (creating if needed) the append-only activity log
// and mints a random session id that tags every record written through it.
func OpenActivityLog(path string) (*ActivityLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open activity log %s: %w", path, err)
	}
	return &ActivityLog{file: f, sessionID: uuid.NewString()}, nil
}

// Record appends one diagnostic entry. now is passed in by the caller
// rather than taken internally, so callers driven by a scheduler or test
// harness control timestamps.
func (a *ActivityLog) Record(now time.Time, kind, message string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	line, err := json.Marshal(ActivityRecord{Time: now, SessionID: a.sessionID, Kind: kind, Message: message})
	if err != nil {
		return err
	}
	line = append(line, '\n')
	_, err = a.file.Write(line)
	return err
}

// Close closes the underlying file.
func (a *ActivityLog) Close() error {
	return a.file.Close()
}
