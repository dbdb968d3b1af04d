// Package dispatch implements the line-mode command dispatcher: the verb
// table and the generation/confirmation cycle that internal/relay hands
// control to whenever the user is in line or prompt mode (SPEC_FULL.md
// §4.G). original_source/commands.py and lls.py are non-functional stubs,
// so this package is grounded directly on spec prose for behavior and on
// the teacher's switch-based event dispatch (e.g.
// internal/session/agent/harness/claude/event_handler.go's processLogRecord)
// for shape.
package dispatch

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/shlex"

	"github.com/kaixinguo360/lls/internal/genai"
	"github.com/kaixinguo360/lls/internal/lineedit"
	"github.com/kaixinguo360/lls/internal/llmclient"
	"github.com/kaixinguo360/lls/internal/screen"
	"github.com/kaixinguo360/lls/internal/store"
)

// Signal is what a verb (or the read-line loop itself) hands back to the
// relay once line mode has something for it to act on.
type Signal int

const (
	// SignalContinue keeps the read-line→dispatch loop running.
	SignalContinue Signal = iota
	// SignalQuit leaves line mode and returns to pass-through.
	SignalQuit
	// SignalReset leaves line mode after the relay clears the screen grid;
	// slave tty attributes are not restored.
	SignalReset
	// SignalTTY hands raw stdin→slave control to the relay's tty sub-mode
	// until Ctrl-E.
	SignalTTY
)

// Paths bundles every on-disk location the dispatcher persists to, all
// resolved under $HOME by the caller (SPEC_FULL.md §3).
type Paths struct {
	History    string // .lls_history
	CmdHistory string // .cmd_history
	AIConfig   string // .lls_ai_config
}

// Dispatcher owns every piece of interactive state line mode touches: the
// shared screen, the active session supervisor, recall buffers, and the
// single keystroke channel the relay stops consuming from for the
// duration of a line/prompt-mode call.
type Dispatcher struct {
	Keys <-chan byte // raw stdin bytes; relay is the sole producer
	Out  io.Writer   // user terminal, for dispatcher-owned output
	PTY  io.Writer   // pty master, for injecting accepted commands

	Screen   *screen.Screen
	Sessions *genai.MixedSession
	Editors  *lineedit.Registry
	Client   *llmclient.Client
	Activity *store.ActivityLog
	Paths    Paths

	mu           sync.Mutex
	thinkVisible bool
	lastErr      string
	lastErrTrace string
	lastCancel   time.Time
}

// New returns a Dispatcher ready to run RunLine or RunPromptOnce. keys must
// be fed exactly the bytes the relay would otherwise forward to the slave
// while line/prompt mode owns input.
func New(keys <-chan byte, out, pty io.Writer, scr *screen.Screen, sessions *genai.MixedSession, editors *lineedit.Registry, client *llmclient.Client, activity *store.ActivityLog, paths Paths) *Dispatcher {
	return &Dispatcher{
		Keys: keys, Out: out, PTY: pty,
		Screen: scr, Sessions: sessions, Editors: editors,
		Client: client, Activity: activity, Paths: paths,
	}
}

// readRune decodes one UTF-8 rune from Keys, blocking until enough bytes
// have arrived. Returns ok=false once Keys is closed (child/relay shutdown).
func (d *Dispatcher) readRune() (rune, bool) {
	b0, ok := <-d.Keys
	if !ok {
		return 0, false
	}
	if b0 < utf8.RuneSelf {
		return rune(b0), true
	}
	n := 0
	switch {
	case b0&0xE0 == 0xC0:
		n = 1
	case b0&0xF0 == 0xE0:
		n = 2
	case b0&0xF8 == 0xF0:
		n = 3
	}
	buf := make([]byte, 1, n+1)
	buf[0] = b0
	for i := 0; i < n; i++ {
		b, ok := <-d.Keys
		if !ok {
			break
		}
		buf = append(buf, b)
	}
	r, _ := utf8.DecodeRune(buf)
	return r, true
}

// readLine drives one lineedit cycle against editor id bufID, echoing each
// keystroke to Out. ok is false when the channel closed underneath it
// (shutdown mid-prompt), distinct from a Ctrl-D exit sentinel.
func (d *Dispatcher) readLine(bufID, prompt, value string) (text string, cancelled, ok bool) {
	buf := d.Editors.Buffer(bufID)
	cancelSentinel := ""
	exitSentinel := ""
	e := lineedit.NewEditor(buf, lineedit.Options{
		Prompt: prompt, Value: value,
		Cancel: &cancelSentinel, Exit: &exitSentinel,
	})
	render := func() {
		fmt.Fprintf(d.Out, "\r%s%s\033[K", prompt, buf.CurrentLine())
	}
	render()
	for {
		r, alive := d.readRune()
		if !alive {
			return "", false, false
		}
		out := e.Feed(r)
		if !out.Done {
			render()
			continue
		}
		e.Commit(out)
		fmt.Fprint(d.Out, "\r\n")
		return out.Text, out.Cancelled, true
	}
}

// tokenize splits s shell-word-style, so a quoted session id containing
// spaces survives verbs that need more than one argument (rename, create).
// A malformed quote falls back to plain whitespace splitting rather than
// erroring the whole command.
func tokenize(s string) []string {
	toks, err := shlex.Split(s)
	if err != nil {
		return strings.Fields(s)
	}
	return toks
}

// parseVerb splits a command line into its leading token and the rest.
func parseVerb(line string) (verb, arg string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", ""
	}
	parts := strings.SplitN(line, " ", 2)
	if len(parts) == 2 {
		return parts[0], strings.TrimSpace(parts[1])
	}
	return parts[0], ""
}

// RunLine drives the read-line→dispatch loop until a verb returns a
// terminal Signal or the keystroke channel closes.
func (d *Dispatcher) RunLine() Signal {
	for {
		line, cancelled, ok := d.readLine("command", "lls> ", "")
		if !ok {
			return SignalQuit
		}
		if cancelled {
			continue
		}
		verb, arg := parseVerb(line)
		if verb == "" {
			continue
		}
		sig := d.dispatch(canonicalVerb(verb), arg)
		if sig != SignalContinue {
			return sig
		}
	}
}

// dispatch executes one canonicalized verb, matching the teacher's
// switch-on-tag event dispatch idiom.
func (d *Dispatcher) dispatch(verb, arg string) Signal {
	switch verb {
	case "quit":
		return SignalQuit
	case "show":
		d.verbShow()
	case "raw":
		fmt.Fprint(d.Out, d.Screen.Text("\r\n"), "\r\n")
	case "chat":
		d.verbChat()
	case "reset":
		return SignalReset
	case "clear":
		fmt.Fprint(d.Out, "\033[2J\033[H")
	case "watch":
		d.verbWatch(arg)
	case "generate":
		d.verbGenerate(arg)
	case "exec":
		d.verbExec(arg)
	case "input":
		fmt.Fprint(d.PTY, arg)
	case "esc":
		d.verbEsc(arg)
	case "tty":
		return SignalTTY
	case "auto":
		d.verbAuto(arg)
	case "err":
		d.verbErr()
	case "config":
		d.verbConfig()
	case "set":
		d.verbSet(arg)
	case "get":
		d.verbGet(arg)
	case "mode":
		d.verbMode(arg)
	case "create":
		d.verbCreate()
	case "remove":
		d.verbRemove(arg)
	case "rename":
		d.verbRename(arg)
	case "ls":
		d.verbLs()
	default:
		fmt.Fprintf(d.Out, "%s: command not found\r\n", verb)
	}
	return SignalContinue
}

func canonicalVerb(tok string) string {
	switch tok {
	case "q", "exit":
		return "quit"
	case "s", "status":
		return "show"
	case "r":
		return "raw"
	case "ch":
		return "chat"
	case "c":
		return "clear"
	case "w":
		return "watch"
	case "g", "gen":
		return "generate"
	case "e":
		return "exec"
	case "i":
		return "input"
	case "t":
		return "tty"
	case "a":
		return "auto"
	case "configs", "conf":
		return "config"
	case "m":
		return "mode"
	case "del", "delete":
		return "remove"
	case "l":
		return "ls"
	default:
		return tok
	}
}

// recordDispatchErr stashes err per error kind 4 (edit/dispatch failures):
// printed once, kept for the err verb, and mirrored to the activity log so
// it survives even if the user never asks.
func (d *Dispatcher) recordDispatchErr(context string, err error) {
	d.mu.Lock()
	d.lastErr = fmt.Sprintf("%s: %v", context, err)
	d.lastErrTrace = d.lastErr
	d.mu.Unlock()
	fmt.Fprintf(d.Out, "%s\r\n", d.lastErr)
	if d.Activity != nil {
		d.Activity.Record(time.Now(), "dispatch_error", d.lastErr)
	}
}
