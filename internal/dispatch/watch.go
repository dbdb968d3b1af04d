package dispatch

import (
	"fmt"
	"time"
)

// verbWatch is the periodic-refresh view: it repaints the screen on a
// ticker and lets a handful of single-key hotkeys act without leaving the
// watch loop. g generate, e exec, i input, c clear, d dump the escape
// diagnostics, n forces an immediate refresh, b (or q) backs out to the
// line-mode prompt.
func (d *Dispatcher) verbWatch(arg string) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	fmt.Fprint(d.Out, "-- watch mode, 'b' to exit --\r\n")
	d.verbShow()
	for {
		select {
		case <-ticker.C:
			d.verbShow()
		case b, ok := <-d.Keys:
			if !ok {
				return
			}
			switch b {
			case 'b', 'q':
				return
			case 'g':
				d.verbGenerate(arg)
			case 'e':
				line, cancelled, ok := d.readLine("watch:exec", "exec> ", "")
				if ok && !cancelled {
					d.verbExec(line)
				}
			case 'i':
				line, cancelled, ok := d.readLine("watch:input", "input> ", "")
				if ok && !cancelled {
					fmt.Fprint(d.PTY, line)
				}
			case 'c':
				fmt.Fprint(d.Out, "\033[2J\033[H")
			case 'n':
				d.verbShow()
			case 'd':
				d.verbEsc("status")
			}
		}
	}
}
