package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kaixinguo360/lls/internal/genai"
	"github.com/kaixinguo360/lls/internal/screen"
)

func TestLoadAIConfigMissingFileReturnsEmpty(t *testing.T) {
	cfg, err := LoadAIConfig(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("LoadAIConfig() error = %v", err)
	}
	if cfg.AI == nil || len(cfg.AI) != 0 {
		t.Fatalf("LoadAIConfig() = %+v, want empty", cfg)
	}
}

func TestSaveThenLoadAIConfigRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lls_ai_config")
	cfg := &AIConfig{
		CurrentAIID: "a",
		AI: map[string]genai.StoredSession{
			"a": {ID: "a", Type: "chat", Config: []byte(`{"model":"gpt-4o-mini"}`)},
		},
	}
	if err := SaveAIConfig(path, cfg); err != nil {
		t.Fatalf("SaveAIConfig() error = %v", err)
	}
	got, err := LoadAIConfig(path)
	if err != nil {
		t.Fatalf("LoadAIConfig() error = %v", err)
	}
	if got.CurrentAIID != "a" || got.AI["a"].Type != "chat" {
		t.Fatalf("LoadAIConfig() = %+v, want round trip of %+v", got, cfg)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lls_history")
	h := map[string][]string{"instruct": {"ls", "ls -la"}}
	if err := SaveHistory(path, h); err != nil {
		t.Fatalf("SaveHistory() error = %v", err)
	}
	got, err := LoadHistory(path)
	if err != nil {
		t.Fatalf("LoadHistory() error = %v", err)
	}
	if len(got["instruct"]) != 2 || got["instruct"][1] != "ls -la" {
		t.Fatalf("LoadHistory() = %+v", got)
	}
}

func TestScrollLogBeginMarkerThenScreenCloseEndMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lls_screen_history")
	f, err := OpenScrollLog(path)
	if err != nil {
		t.Fatalf("OpenScrollLog() error = %v", err)
	}
	s := screen.New()
	s.DumpSink = f
	s.Write([]byte("ls -la"))
	s.Close()
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	got := string(data)
	if !strings.HasPrefix(got, screen.HistoryBeginMarker) {
		t.Fatalf("log = %q, want to start with begin marker", got)
	}
	if !strings.HasSuffix(got, screen.HistoryEndMarker) {
		t.Fatalf("log = %q, want to end with end marker", got)
	}
	if !strings.Contains(got, "ls -la") {
		t.Fatalf("log = %q, want to contain dumped line", got)
	}
}

func TestAppendCmdHistoryFlattensFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".cmd_history")
	if err := AppendCmdHistory(path, "list files\nplease", "ls -la"); err != nil {
		t.Fatalf("AppendCmdHistory() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	want := "prompt: list files please\tls -la\n"
	if string(data) != want {
		t.Fatalf("cmd history = %q, want %q", string(data), want)
	}
}

func TestActivityLogAppendsNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lls_activity.log")
	log, err := OpenActivityLog(path)
	if err != nil {
		t.Fatalf("OpenActivityLog() error = %v", err)
	}
	defer log.Close()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := log.Record(now, "config", "bad toml"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), `"kind":"config"`) || !strings.Contains(string(data), "bad toml") {
		t.Fatalf("activity log = %q", string(data))
	}
}
