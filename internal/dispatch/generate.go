package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kaixinguo360/lls/internal/cancel"
	"github.com/kaixinguo360/lls/internal/genai"
	"github.com/kaixinguo360/lls/internal/store"
)

// verbGenerate runs the full interactive generation + confirmation cycle
// (SPEC_FULL.md §4.G) and injects the result into the pty on acceptance.
func (d *Dispatcher) verbGenerate(arg string) {
	cmd, newline, accepted := d.generationCycle(arg, true)
	if accepted {
		d.inject(cmd, newline)
	}
}

// RunPromptOnce reads one instruction line and runs the one-shot generation
// the relay's prompt mode uses: no confirmation prompt, the stream result
// is accepted as-is without a trailing newline ("input-as-is",
// SPEC_FULL.md §4.F). It returns the text to forward into the master, or
// ok=false if nothing should be injected.
func (d *Dispatcher) RunPromptOnce() (cmd string, ok bool) {
	instruct, cancelled, alive := d.readLine("instruct", "> ", "")
	if !alive || cancelled || instruct == "" {
		return "", false
	}
	cmd, _, accepted := d.generationCycleWithInstruct(instruct, false)
	return cmd, accepted
}

// inject writes cmd to the pty, appending a newline unless the accept verb
// was 'i' (inject as partial input).
func (d *Dispatcher) inject(cmd string, newline bool) {
	fmt.Fprint(d.PTY, cmd)
	if newline {
		fmt.Fprint(d.PTY, "\n")
	}
}

// generationCycle reads the instruction from the user (with the /command
// escape) before handing off to generationCycleWithInstruct.
func (d *Dispatcher) generationCycle(prefill string, interactive bool) (cmd string, newline, accepted bool) {
	for {
		instruct, cancelled, ok := d.readLine("instruct", "instruct> ", prefill)
		if !ok || cancelled {
			return "", false, false
		}
		if strings.HasPrefix(instruct, "/") {
			sub, subarg := parseVerb(strings.TrimPrefix(instruct, "/"))
			switch canonicalVerb(sub) {
			case "show":
				d.verbShow()
			case "set":
				d.verbSet(subarg)
			case "get":
				d.verbGet(subarg)
			case "mode":
				d.verbMode(subarg)
			default:
				fmt.Fprintf(d.Out, "/%s: not available mid-prompt\r\n", sub)
			}
			prefill = ""
			continue
		}
		return d.generationCycleWithInstruct(instruct, interactive)
	}
}

// generationCycleWithInstruct implements steps 2-6 of the generation cycle
// once an instruction line has already been obtained.
func (d *Dispatcher) generationCycleWithInstruct(instruct string, interactive bool) (cmd string, newline, accepted bool) {
	for {
		var cmdOut, think string
		if idx := strings.Index(instruct, "#"); idx >= 0 {
			cmdOut = strings.TrimSpace(instruct[idx+1:])
			instruct = strings.TrimSpace(instruct[:idx])
		} else {
			cmdOut, think = d.stream(instruct)
		}

		if !interactive {
			if cmdOut == "" {
				return "", false, false
			}
			d.commit(instruct, cmdOut, true)
			return cmdOut, false, true
		}

		verb, edited, keepGoing := d.confirm(instruct, cmdOut, think)
		if keepGoing == confirmRegenerate {
			continue
		}
		if keepGoing == confirmEdit {
			next, cancelled, ok := d.readLine("instruct", "instruct> ", instruct)
			if !ok || cancelled {
				return "", false, false
			}
			instruct = next
			continue
		}

		switch verb {
		case 'y':
			d.commit(instruct, cmdOut, true)
			return cmdOut, true, true
		case 'u':
			d.commit(instruct, cmdOut, false)
			return cmdOut, true, true
		case 'i':
			d.commit(instruct, cmdOut, false)
			return cmdOut, false, true
		case 't':
			d.commit(instruct, edited, true)
			return edited, true, true
		default: // 'n' or cancel-twice abort
			return "", false, false
		}
	}
}

// stream drives the active session's cancelable adapter, repainting the
// cmd/think line on every increment, and returns the final (cmd, think).
func (d *Dispatcher) stream(instruct string) (cmd, think string) {
	s := d.active()
	if s == nil {
		fmt.Fprint(d.Out, "no active session\r\n")
		return "", ""
	}
	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()
	adapter := s.Generate(ctx, instruct, d.Screen.Text("\n"))
	var last genai.Output
	for {
		select {
		case item, ok := <-adapter.Items():
			if !ok {
				_ = adapter.Err()
				d.render(last)
				return last.Cmd, last.Think
			}
			last = item
			d.render(last)
		case b, ok := <-d.Keys:
			if !ok {
				adapter.Cancel()
				continue
			}
			if cancel.IsCancelByte(b) {
				adapter.Cancel()
			}
		}
	}
}

func (d *Dispatcher) render(out genai.Output) {
	d.mu.Lock()
	visible := d.thinkVisible
	d.mu.Unlock()
	if visible && out.Think != "" {
		fmt.Fprintf(d.Out, "\rthink: %s\033[K\r\n", out.Think)
	}
	fmt.Fprintf(d.Out, "\rcmd: %s\033[K", out.Cmd)
}

// commit saves the turn to the active session and, when persist is set,
// appends it to the on-disk command history.
func (d *Dispatcher) commit(instruct, cmd string, persist bool) {
	s := d.active()
	if s == nil {
		return
	}
	if err := s.Save(instruct, d.Screen.Text("\n"), cmd); err != nil {
		d.recordDispatchErr("save", err)
	}
	if persist && d.Paths.CmdHistory != "" {
		if err := store.AppendCmdHistory(d.Paths.CmdHistory, instruct, cmd); err != nil {
			d.recordDispatchErr("cmd history", err)
		}
	}
}

type confirmAgain int

const (
	confirmDone confirmAgain = iota
	confirmRegenerate
	confirmEdit
)

// confirm shows the confirmation prompt and blocks for one decision byte,
// handling the sub-flags that loop back into the cycle (e, r, k, s) itself.
// edited is only meaningful when the returned verb is 't'.
func (d *Dispatcher) confirm(instruct, cmd, think string) (verb byte, edited string, again confirmAgain) {
	for {
		fmt.Fprintf(d.Out, "\r\ncmd: %s\r\n[y/u/i/n/e/s/r/k/t]? ", cmd)
		r, ok := d.readRune()
		if !ok {
			return 'n', "", confirmDone
		}
		switch r {
		case 0x03, 0x04:
			now := time.Now()
			d.mu.Lock()
			doubleTap := !d.lastCancel.IsZero() && now.Sub(d.lastCancel) < 600*time.Millisecond
			d.lastCancel = now
			d.mu.Unlock()
			if doubleTap {
				return 'n', "", confirmDone
			}
			continue
		case 'y', 'u', 'i', 'n':
			return byte(r), "", confirmDone
		case 'e':
			return 0, "", confirmEdit
		case 'r':
			return 0, "", confirmRegenerate
		case 'k':
			d.mu.Lock()
			d.thinkVisible = !d.thinkVisible
			d.mu.Unlock()
			if d.thinkVisible {
				fmt.Fprintf(d.Out, "think: %s\r\n", think)
			}
			continue
		case 's':
			d.verbShow()
			continue
		case 't':
			text, cancelled, ok := d.readLine("teach", "teach> ", cmd)
			if !ok || cancelled {
				continue
			}
			return 't', text, confirmDone
		default:
			fmt.Fprintf(d.Out, "%c: not a valid choice\r\n", r)
		}
	}
}
