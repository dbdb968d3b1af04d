package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/kaixinguo360/lls/internal/cancel"
	"github.com/kaixinguo360/lls/internal/genai"
	"github.com/kaixinguo360/lls/internal/lineedit"
	"github.com/kaixinguo360/lls/internal/screen"
)

func TestParseVerbSplitsLeadingToken(t *testing.T) {
	verb, arg := parseVerb("  set model gpt-4o  ")
	if verb != "set" || arg != "model gpt-4o" {
		t.Fatalf("parseVerb() = (%q, %q)", verb, arg)
	}
}

func TestParseVerbEmptyLine(t *testing.T) {
	verb, arg := parseVerb("   ")
	if verb != "" || arg != "" {
		t.Fatalf("parseVerb() = (%q, %q), want empty", verb, arg)
	}
}

func TestCanonicalVerbAliases(t *testing.T) {
	cases := map[string]string{
		"q": "quit", "exit": "quit", "s": "show", "status": "show",
		"gen": "generate", "g": "generate", "del": "remove", "delete": "remove",
		"ls": "ls", "unknown-verb": "unknown-verb",
	}
	for alias, want := range cases {
		if got := canonicalVerb(alias); got != want {
			t.Errorf("canonicalVerb(%q) = %q, want %q", alias, got, want)
		}
	}
}

// fakeSession is a minimal genai.Session for dispatcher tests that never
// touches the network.
type fakeSession struct {
	out   genai.Output
	outs  []genai.Output // when set, consumed in order across successive Generate calls, one per call
	calls int
	saved []string
}

func (f *fakeSession) Type() string { return "fake" }
func (f *fakeSession) Generate(ctx context.Context, instruct, console string) *cancel.Adapter[genai.Output] {
	out := f.out
	if len(f.outs) > 0 {
		i := f.calls
		if i >= len(f.outs) {
			i = len(f.outs) - 1
		}
		out = f.outs[i]
		f.calls++
	}
	return cancel.Start(func(ctx context.Context, emit func(genai.Output)) error {
		emit(genai.Output{})
		emit(out)
		return nil
	})
}
func (f *fakeSession) Save(instruct, console, output string) error {
	f.saved = append(f.saved, instruct+"=>"+output)
	return nil
}
func (f *fakeSession) Get(key string) (string, bool) { return "", false }
func (f *fakeSession) Set(key, value string) error   { return nil }
func (f *fakeSession) Configs() []genai.ConfigEntry  { return nil }
func (f *fakeSession) SaveConfig() (json.RawMessage, error) {
	return json.RawMessage("{}"), nil
}

func newTestDispatcher(t *testing.T, fake *fakeSession) (*Dispatcher, chan byte, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	sessions := genai.NewMixedSession()
	sessions.Add("default", fake)
	if err := sessions.Switch("default"); err != nil {
		t.Fatal(err)
	}
	keys := make(chan byte, 64)
	out := &bytes.Buffer{}
	pty := &bytes.Buffer{}
	d := New(keys, out, pty, screen.New(), sessions, lineedit.NewRegistry(), nil, nil, Paths{})
	return d, keys, out, pty
}

func feedKeys(keys chan byte, s string) {
	for _, b := range []byte(s) {
		keys <- b
	}
}

func TestRunLineQuitReturnsSignalQuit(t *testing.T) {
	d, keys, _, _ := newTestDispatcher(t, &fakeSession{})
	go feedKeys(keys, "quit\r")
	if sig := d.RunLine(); sig != SignalQuit {
		t.Fatalf("RunLine() = %v, want SignalQuit", sig)
	}
}

func TestRunLineUnknownVerbPrintsNotice(t *testing.T) {
	d, keys, out, _ := newTestDispatcher(t, &fakeSession{})
	go feedKeys(keys, "bogus\rquit\r")
	d.RunLine()
	if !bytes.Contains(out.Bytes(), []byte("bogus: command not found")) {
		t.Fatalf("output = %q, want unknown command notice", out.String())
	}
}

func TestGenerationCycleSplitOnHashSkipsModelCall(t *testing.T) {
	fake := &fakeSession{}
	d, keys, _, _ := newTestDispatcher(t, fake)
	go feedKeys(keys, "do it # ls -la\ry")
	cmd, newline, accepted := d.generationCycle("", true)
	if !accepted || cmd != "ls -la" || !newline {
		t.Fatalf("generationCycle() = (%q, %v, %v)", cmd, newline, accepted)
	}
	if len(fake.saved) != 1 {
		t.Fatalf("Save() calls = %d, want 1", len(fake.saved))
	}
}

func TestRunPromptOnceAcceptsWithoutConfirmation(t *testing.T) {
	fake := &fakeSession{out: genai.Output{Cmd: "echo hi"}}
	d, keys, _, _ := newTestDispatcher(t, fake)
	go feedKeys(keys, "say hi\r")
	cmd, ok := d.RunPromptOnce()
	if !ok || cmd != "echo hi" {
		t.Fatalf("RunPromptOnce() = (%q, %v), want (\"echo hi\", true)", cmd, ok)
	}
}

func TestVerbAutoStopsImmediatelyOnEmptyCmd(t *testing.T) {
	fake := &fakeSession{outs: []genai.Output{{Cmd: ""}}}
	d, keys, out, pty := newTestDispatcher(t, fake)
	go feedKeys(keys, "do it\r")
	d.verbAuto("")
	if pty.Len() != 0 {
		t.Fatalf("pty = %q, want no write on empty cmd", pty.String())
	}
	if !bytes.Contains(out.Bytes(), []byte("--- screen")) {
		t.Fatalf("output = %q, want a final cmd_show before exit", out.String())
	}
	if len(fake.saved) != 0 {
		t.Fatalf("Save() calls = %d, want 0 (nothing to commit on empty cmd)", len(fake.saved))
	}
}

func TestVerbAutoLoopsWithoutConfirmationUntilEmpty(t *testing.T) {
	fake := &fakeSession{outs: []genai.Output{{Cmd: "ls -la"}, {Cmd: ""}}}
	d, keys, _, pty := newTestDispatcher(t, fake)
	go feedKeys(keys, "list files\r")
	d.verbAuto("")
	if !bytes.Contains(pty.Bytes(), []byte("ls -la")) {
		t.Fatalf("pty = %q, want injected command from first round", pty.String())
	}
	if len(fake.saved) != 1 {
		t.Fatalf("Save() calls = %d, want 1 (only the non-empty round commits)", len(fake.saved))
	}
}

func TestVerbLsMarksActiveSession(t *testing.T) {
	fake := &fakeSession{}
	d, _, out, _ := newTestDispatcher(t, fake)
	d.verbLs()
	if !bytes.Contains(out.Bytes(), []byte("* default (fake)")) {
		t.Fatalf("output = %q, want active marker on default", out.String())
	}
}
