// Package relay owns the master/slave PTY pair, the wrapped shell process,
// and the multiplexing of stdin between pass-through, line, and prompt
// modes (SPEC_FULL.md §4.F). It is structurally grounded on the teacher's
// internal/overlay.Overlay + internal/virtualterminal.VT pair — the same
// raw-mode setup, SIGWINCH handling, and reader-goroutine shape — but
// *virtualterminal.VT's vito/midterm terminal is replaced by
// *internal/screen.Screen per the redesign away from a regex-driven VT
// dependency, and OSC color response is factored out into
// internal/termcolor instead of living on the PTY wrapper itself.
package relay

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"github.com/kaixinguo360/lls/internal/config"
	"github.com/kaixinguo360/lls/internal/dispatch"
	"github.com/kaixinguo360/lls/internal/genai"
	"github.com/kaixinguo360/lls/internal/lineedit"
	"github.com/kaixinguo360/lls/internal/llmclient"
	"github.com/kaixinguo360/lls/internal/screen"
	"github.com/kaixinguo360/lls/internal/store"
	"github.com/kaixinguo360/lls/internal/termcolor"
)

// mode names the relay's three mutually exclusive input interpretations.
type mode int

const (
	modeChar mode = iota
	modeLine
	modePrompt
)

const ptyWriteTimeout = 3 * time.Second

// hotkeyLine and hotkeyPrompt switch out of char (pass-through) mode.
const (
	hotkeyLine   = 0x05 // Ctrl-E
	hotkeyPrompt = 0x07 // Ctrl-G
)

// Relay drives one wrapped-shell session end to end.
type Relay struct {
	homeDir string

	scr   *screen.Screen
	hints termcolor.Hints

	ptm     *os.File
	cmd     *exec.Cmd
	restore *term.State

	sessions *genai.MixedSession
	editors  *lineedit.Registry
	activity *store.ActivityLog
	client   *llmclient.Client
	paths    dispatch.Paths

	scrollLog *os.File

	keys       chan byte
	dispatcher *dispatch.Dispatcher

	mu        sync.Mutex
	mode      mode
	childHung bool
}

// New loads persisted state under homeDir (config, ai sessions, edit
// history) and prepares a Relay. It does not yet touch the terminal or
// spawn anything — call Run for that.
func New(homeDir string) (*Relay, error) {
	cfg, err := config.LoadFrom(filepath.Join(homeDir, ".lls.toml"))
	if err != nil {
		return nil, err
	}

	clientCfg := llmclient.ConfigFromEnv()
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.DefaultModel != "" {
		clientCfg.Model = cfg.DefaultModel
	}
	client := llmclient.New(clientCfg)

	activity, err := store.OpenActivityLog(filepath.Join(homeDir, ".lls_activity.log"))
	if err != nil {
		return nil, err
	}

	aiConfigPath := filepath.Join(homeDir, ".lls_ai_config")
	aiCfg, err := store.LoadAIConfig(aiConfigPath)
	if err != nil {
		return nil, err
	}
	sessions := genai.NewMixedSession()
	ids := make([]string, 0, len(aiCfg.AI))
	for id := range aiCfg.AI {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		s, err := genai.FromStored(client, aiCfg.AI[id])
		if err != nil {
			// Error kind 3: per-entry config load failures don't block siblings.
			activity.Record(time.Now(), "config", fmt.Sprintf("session %q: %v", id, err))
			continue
		}
		sessions.Add(id, s)
	}
	if len(ids) == 0 {
		sessions.Add("default", genai.NewChatSession(client))
	}
	if aiCfg.CurrentAIID != "" {
		sessions.Switch(aiCfg.CurrentAIID)
	} else if active := sessions.IDs(); len(active) > 0 {
		sessions.Switch(active[0])
	}

	historyPath := filepath.Join(homeDir, ".lls_history")
	history, err := store.LoadHistory(historyPath)
	if err != nil {
		return nil, err
	}
	editors := lineedit.NewRegistry()
	for id, lines := range history {
		editors.Seed(id, lines)
	}

	scr := screen.New()
	scrollLog, err := store.OpenScrollLog(filepath.Join(homeDir, ".lls_screen_history"))
	if err != nil {
		return nil, err
	}
	scr.DumpSink = scrollLog

	return &Relay{
		homeDir:   homeDir,
		scr:       scr,
		sessions:  sessions,
		editors:   editors,
		activity:  activity,
		client:    client,
		scrollLog: scrollLog,
		paths: dispatch.Paths{
			History:    historyPath,
			CmdHistory: filepath.Join(homeDir, ".cmd_history"),
			AIConfig:   aiConfigPath,
		},
		keys: make(chan byte, 256),
	}, nil
}

// Run wraps command/args in a PTY and relays I/O until the child exits,
// returning the exit status to propagate. If stdin is not a tty it
// degrades to a plain passthrough exec, per SPEC_FULL.md §6.
func (r *Relay) Run(command string, args []string) (int, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return r.runPlain(command, args)
	}

	fd := int(os.Stdin.Fd())
	cols, rows, err := term.GetSize(fd)
	if err != nil {
		return 1, fmt.Errorf("get terminal size: %w", err)
	}

	// Color detection reads termios state that raw mode would disturb.
	r.hints = termcolor.Detect(os.Stdout)

	r.cmd = exec.Command(command, args...)
	r.ptm, err = pty.StartWithSize(r.cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return 1, fmt.Errorf("start command: %w", err)
	}
	defer r.ptm.Close()

	r.restore, err = term.MakeRaw(fd)
	if err != nil {
		return 1, fmt.Errorf("set raw mode: %w", err)
	}

	r.dispatcher = dispatch.New(r.keys, os.Stdout, r.ptm, r.scr, r.sessions, r.editors, r.client, r.activity, r.paths)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGWINCH)
	go r.watchResize(sigCh, fd)

	go r.pipeOutput()
	go r.pumpStdin()

	doneCh := make(chan error, 1)
	go func() { doneCh <- r.cmd.Wait() }()

	r.mainLoop(doneCh)

	r.shutdown(fd)

	if state := r.cmd.ProcessState; state != nil {
		return state.ExitCode(), nil
	}
	return 0, nil
}

// runPlain is the non-tty degrade path: run the child with inherited
// stdio and propagate its exit status, no PTY or overlay involved.
func (r *Relay) runPlain(command string, args []string) (int, error) {
	cmd := exec.Command(command, args...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	err := cmd.Run()
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return 1, err
	}
	return 0, nil
}

// pumpStdin is the sole reader of os.Stdin; it hands every byte to keys so
// that whichever mode currently "owns" input (the relay's char-mode
// handler, or the dispatcher's line/prompt-mode reader) sees it without
// two goroutines racing on the same fd.
func (r *Relay) pumpStdin() {
	defer close(r.keys)
	buf := make([]byte, 256)
	for {
		n, err := os.Stdin.Read(buf)
		for i := 0; i < n; i++ {
			r.keys <- buf[i]
		}
		if err != nil {
			return
		}
	}
}

// pipeOutput is the reader thread: it feeds every master byte into Screen
// and, outside line mode, echoes it straight to the user terminal.
func (r *Relay) pipeOutput() {
	buf := make([]byte, 4096)
	for {
		n, err := r.ptm.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			termcolor.RespondOSCColors(r.ptm, chunk, r.hints)
			r.scr.Write(chunk)
			if r.currentMode() != modeLine {
				os.Stdout.Write(chunk)
			}
		}
		if err != nil {
			return
		}
	}
}

func (r *Relay) currentMode() mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

func (r *Relay) setMode(m mode) {
	r.mu.Lock()
	r.mode = m
	r.mu.Unlock()
}

// mainLoop is the input demultiplexer: it owns keys while in char mode and
// hands the channel to the dispatcher for the duration of line/prompt mode.
func (r *Relay) mainLoop(doneCh <-chan error) {
	for {
		select {
		case <-doneCh:
			return
		case b, ok := <-r.keys:
			if !ok {
				return
			}
			switch b {
			case hotkeyLine:
				r.setMode(modeLine)
				r.runLineMode()
				r.setMode(modeChar)
			case hotkeyPrompt:
				r.setMode(modePrompt)
				r.runPromptMode()
				r.setMode(modeChar)
			default:
				r.writePTYOrHang([]byte{b})
			}
		}
	}
}

func (r *Relay) runLineMode() {
	switch r.dispatcher.RunLine() {
	case dispatch.SignalReset:
		r.resetSlave()
	case dispatch.SignalTTY:
		r.runTTYMode()
	}
}

// runPromptMode runs one generate-and-inject cycle with no confirmation
// prompt, then always returns to char mode (SPEC_FULL.md §4.F).
func (r *Relay) runPromptMode() {
	if cmd, ok := r.dispatcher.RunPromptOnce(); ok {
		r.writePTYOrHang([]byte(cmd))
	}
}

// runTTYMode hands raw stdin straight to the slave until Ctrl-E. It does not
// redraw the screen, and since the relay stays in line mode meanwhile,
// pipeOutput does not echo the slave's output to the terminal.
func (r *Relay) runTTYMode() {
	for b := range r.keys {
		if b == hotkeyLine {
			return
		}
		r.writePTYOrHang([]byte{b})
	}
}

// resetSlave clears the active screen grid (ClearScreen(2)) for the `reset`
// verb; the escape parser's state and the slave's tty attributes are left as
// they are. The
// slave's own termios discipline belongs to the child process once forked;
// there is nothing left on the master side to restore beyond re-syncing
// the window size, which a SIGWINCH would do anyway.
func (r *Relay) resetSlave() {
	r.scr.ClearScreen(2)
}

// writePTYOrHang writes p to the master with a timeout; a child that stops
// reading (hung or exited) gets a single kill attempt rather than blocking
// the relay forever, mirroring the teacher's writePTYOrHang.
func (r *Relay) writePTYOrHang(p []byte) bool {
	done := make(chan error, 1)
	go func() {
		_, err := r.ptm.Write(p)
		done <- err
	}()
	select {
	case err := <-done:
		return err == nil
	case <-time.After(ptyWriteTimeout):
		r.mu.Lock()
		r.childHung = true
		r.mu.Unlock()
		if r.cmd.Process != nil {
			r.cmd.Process.Kill()
		}
		return false
	}
}

func (r *Relay) watchResize(sigCh <-chan os.Signal, fd int) {
	for range sigCh {
		cols, rows, err := term.GetSize(fd)
		if err != nil {
			continue
		}
		pty.Setsize(r.ptm, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
		r.scr.MaxHeight = rows
	}
}

// shutdown closes the scroll-off log, persists sessions and edit-history
// buffers, and restores tty attributes (SPEC_FULL.md §4.F).
func (r *Relay) shutdown(fd int) {
	r.scr.Close()
	if r.scrollLog != nil {
		r.scrollLog.Close()
	}
	if err := store.SaveHistory(r.paths.History, r.editors.Dump()); err != nil {
		r.activity.Record(time.Now(), "shutdown", err.Error())
	}
	if stored, err := storeAIConfig(r.sessions); err == nil {
		store.SaveAIConfig(r.paths.AIConfig, stored)
	}
	if r.restore != nil {
		term.Restore(fd, r.restore)
	}
	r.activity.Close()
}

// storeAIConfig serializes every registered session back to the
// .lls_ai_config shape.
func storeAIConfig(sessions *genai.MixedSession) (*store.AIConfig, error) {
	active, _ := sessions.Active()
	cfg := &store.AIConfig{CurrentAIID: active, AI: map[string]genai.StoredSession{}}
	for _, id := range sessions.IDs() {
		s, _ := sessions.Session(id)
		if s == nil {
			continue
		}
		stored, err := genai.ToStored(id, s)
		if err != nil {
			return nil, err
		}
		cfg.AI[id] = stored
	}
	return cfg, nil
}
