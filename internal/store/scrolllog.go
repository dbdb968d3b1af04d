package store

import (
	"fmt"
	"os"

	"github.com/kaixinguo360/lls/internal/screen"
)

// OpenScrollLog opens (creating if needed) the append-only
// .lls_screen_history file and writes the session-begin marker, returning
// the *os.File for use as a Screen's DumpSink. The caller is responsible
// for calling Screen.Close (which writes the matching end marker) and then
// closing the returned file.
func OpenScrollLog(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open scroll log %s: %w", path, err)
	}
	if _, err := f.WriteString(screen.HistoryBeginMarker); err != nil {
		f.Close()
		return nil, fmt.Errorf("write scroll log begin marker: %w", err)
	}
	return f, nil
}
