package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/kaixinguo360/lls/internal/cancel"
)

// verbExec runs a plain command ("cmd" or "cmd # annotation") by injecting
// it into the shell, then persists it as a synthetic model exchange so it
// shows up in chat/raw history the same way an accepted generation would.
func (d *Dispatcher) verbExec(arg string) {
	cmdPart, annotation := arg, ""
	if idx := strings.Index(arg, "#"); idx >= 0 {
		cmdPart = strings.TrimSpace(arg[:idx])
		annotation = strings.TrimSpace(arg[idx+1:])
	}
	cmdPart = strings.TrimSpace(cmdPart)
	if cmdPart == "" {
		fmt.Fprint(d.Out, "usage: exec CMD [# annotation]\r\n")
		return
	}
	instruct := annotation
	if instruct == "" {
		instruct = cmdPart
	}
	d.inject(cmdPart, true)
	d.commit(instruct, cmdPart, true)
}

// verbAuto loops generate→inject→refresh on one fixed instruction, never
// pausing for confirmation, until the model returns an empty command or the
// user aborts with a cancel byte between rounds. An empty cmd stops the
// loop immediately with no write to master, after one final cmd_show.
func (d *Dispatcher) verbAuto(arg string) {
	instruct, cancelled, ok := d.readLine("instruct", "instruct> ", arg)
	if !ok || cancelled || instruct == "" {
		return
	}
	for {
		cmd, newline, accepted := d.generationCycleWithInstruct(instruct, false)
		if !accepted || cmd == "" {
			d.verbShow()
			return
		}
		d.inject(cmd, newline)
		time.Sleep(100 * time.Millisecond)
		d.verbShow()
		select {
		case b, ok := <-d.Keys:
			if !ok || cancel.IsCancelByte(b) {
				return
			}
		default:
		}
	}
}
