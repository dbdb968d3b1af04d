package relay

import (
	"os"
	"os/exec"
	"testing"

	"github.com/kaixinguo360/lls/internal/genai"
	"github.com/kaixinguo360/lls/internal/screen"
)

func TestStoreAIConfigCapturesActiveAndIDs(t *testing.T) {
	sessions := genai.NewMixedSession()
	sessions.Add("a", genai.NewChatSession(nil))
	sessions.Add("b", genai.NewTextSession(nil))
	if err := sessions.Switch("b"); err != nil {
		t.Fatal(err)
	}
	cfg, err := storeAIConfig(sessions)
	if err != nil {
		t.Fatalf("storeAIConfig() error = %v", err)
	}
	if cfg.CurrentAIID != "b" {
		t.Fatalf("CurrentAIID = %q, want %q", cfg.CurrentAIID, "b")
	}
	if len(cfg.AI) != 2 || cfg.AI["a"].Type != "chat" || cfg.AI["b"].Type != "text" {
		t.Fatalf("AI = %+v, want both sessions with their types", cfg.AI)
	}
}

func TestWritePTYOrHangSucceedsWhenReaderDrains(t *testing.T) {
	readEnd, writeEnd, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer readEnd.Close()
	defer writeEnd.Close()
	go func() {
		buf := make([]byte, 16)
		readEnd.Read(buf)
	}()

	r := &Relay{cmd: &exec.Cmd{}, ptm: writeEnd}
	if ok := r.writePTYOrHang([]byte("hi")); !ok {
		t.Fatal("writePTYOrHang() = false, want true when the other end is reading")
	}
}

func TestModeTransitionsAreExclusive(t *testing.T) {
	r := &Relay{}
	r.setMode(modeLine)
	if r.currentMode() != modeLine {
		t.Fatalf("currentMode() = %v, want modeLine", modeLine)
	}
	r.setMode(modeChar)
	if r.currentMode() != modeChar {
		t.Fatalf("currentMode() = %v, want modeChar", modeChar)
	}
}

func TestResetSlaveClearsScreen(t *testing.T) {
	r := &Relay{scr: screen.New()}
	r.scr.WriteChars("hello")
	r.resetSlave()
	if r.scr.CurrentLine() != "" {
		t.Fatalf("CurrentLine() = %q after reset, want empty", r.scr.CurrentLine())
	}
}
