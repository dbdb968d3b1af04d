// Package lineedit implements cooked-mode line editing for the command
// dispatcher's instruction and command prompts, independent of the wrapped
// shell's own readline. It is grounded on original_source/display.py's
// read_line/read_lines: each editor id owns a recall buffer that is itself a
// single-window *screen.Screen (screen.NewLineEditor), whose full lines
// array doubles as that id's committed history — arrow-up/down recall is
// ordinary cursor motion (AutoMoveToEnd), not a separate history stack.
package lineedit

import (
	"unicode"

	"github.com/kaixinguo360/lls/internal/screen"
)

// Registry holds one recall buffer per editor id, matching display.py's
// module-level bufs dict.
type Registry struct {
	bufs map[string]*screen.Screen
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{bufs: map[string]*screen.Screen{}}
}

// Buffer returns id's recall buffer, creating an empty one on first use.
func (r *Registry) Buffer(id string) *screen.Screen {
	b, ok := r.bufs[id]
	if !ok {
		b = screen.NewLineEditor()
		r.bufs[id] = b
	}
	return b
}

// Seed preloads id's buffer from persisted history (oldest first).
func (r *Registry) Seed(id string, history []string) {
	if len(history) == 0 {
		return
	}
	b := r.Buffer(id)
	for i, line := range history {
		if i > 0 {
			b.AppendRow()
		}
		b.SetCurrentRow(line)
	}
	b.AppendRow()
}

// Dump returns every seeded id's committed history (the trailing scratch
// row excluded) for persistence via store.SaveHistory.
func (r *Registry) Dump() map[string][]string {
	out := make(map[string][]string, len(r.bufs))
	for id, b := range r.bufs {
		n := b.RowCount()
		if n <= 1 {
			out[id] = nil
			continue
		}
		lines := make([]string, 0, n-1)
		for i := 0; i < n-1; i++ {
			lines = append(lines, b.RowAt(i))
		}
		out[id] = lines
	}
	return out
}

// Options configures one ReadLine call, mirroring display.py's read_line
// keyword arguments.
type Options struct {
	Prompt      string
	Value       string
	IncludeLast bool
	MaxChars    int
	Cancel      *string
	Exit        *string
	Backspace   string
	NoSave      map[string]bool
	SkipInput   bool
}

// Outcome is Feed's terminal signal: Done reports whether this byte
// completed the line (commit, cancel, or max-chars truncation).
type Outcome struct {
	Done      bool
	Text      string
	Cancelled bool
}

// Editor drives one ReadLine call's byte-by-byte editing against a recall
// buffer, including the dedup-against-previous-value and no_save/cancel
// commit rules. It does not itself read from or write to any stream; the
// caller (internal/dispatch's readLine) owns I/O, calls Feed per decoded
// rune, and redraws the buffer's current line itself.
type Editor struct {
	buf  *screen.Screen
	opts Options
	done bool
}

// NewEditor starts a read_line cycle against buf, seeding the value per the
// original's duplicate-elision rule: if the buffer's previous committed
// entry already equals Value, reuse that row instead of writing a new one.
func NewEditor(buf *screen.Screen, opts Options) *Editor {
	e := &Editor{buf: buf, opts: opts}
	n := buf.RowCount()
	if n > 1 && buf.RowAt(n-2) == opts.Value {
		// Drop the trailing scratch row and land the cursor on the
		// duplicate entry it matched instead of opening a fresh identical
		// one, mirroring display.py's "buf.lines = buf.lines[:-1]" splice.
		buf.RemoveRow(n - 1)
		buf.SetCurrentRow(opts.Value)
	} else if opts.Value != "" {
		buf.SetCurrentRow(opts.Value)
	}
	if opts.SkipInput {
		e.done = true
	}
	return e
}

// Done reports whether a terminal byte has already been processed, or
// whether SkipInput made the call terminal from construction.
func (e *Editor) Done() bool { return e.done }

// SkipInputOutcome returns the Outcome for a SkipInput editor: it merely
// records opts.Value into history without reading any bytes.
func (e *Editor) SkipInputOutcome() Outcome {
	return Outcome{Done: true, Text: e.buf.CurrentLine()}
}

// Feed processes one decoded input rune and returns whether it completed
// the line. DEL acts as backspace (or writes opts.Backspace when set) and ESC
// is passed to the buffer so arrow-key sequences move through history; other
// control characters besides the configured terminators are dropped,
// matching unicodedata.category(c)[0] == 'C' in the original.
func (e *Editor) Feed(r rune) Outcome {
	if e.done {
		return Outcome{Done: true}
	}
	buf := e.buf
	switch r {
	case 0x03: // Ctrl-C
		if e.opts.Cancel != nil {
			e.done = true
			return Outcome{Done: true, Cancelled: true, Text: *e.opts.Cancel}
		}
	case 0x04: // Ctrl-D
		if e.opts.Exit != nil || e.opts.Cancel != nil {
			val := e.opts.Exit
			if val == nil {
				val = e.opts.Cancel
			}
			e.done = true
			return Outcome{Done: true, Cancelled: true, Text: *val}
		}
	}
	if r == 0x03 || r == 0x04 {
		line := buf.CurrentLine()
		if e.opts.IncludeLast {
			line += string(r)
		}
		e.done = true
		return Outcome{Done: true, Text: line}
	}
	if r == '\r' || r == '\n' {
		line := buf.CurrentLine()
		if e.opts.IncludeLast {
			line += "\n"
		}
		e.done = true
		return Outcome{Done: true, Text: line}
	}
	if r == 0x7f {
		if e.opts.Backspace != "" {
			buf.WriteChars(e.opts.Backspace)
		} else {
			buf.WriteChars("\b")
		}
	} else if r == 0x1b {
		buf.WriteChars(string(r))
	} else if unicode.IsControl(r) {
		// dropped
	} else {
		buf.WriteChars(string(r))
	}
	if e.opts.MaxChars > 0 && len([]rune(buf.CurrentLine())) >= e.opts.MaxChars {
		e.done = true
		return Outcome{Done: true, Text: buf.CurrentLine()}
	}
	return Outcome{}
}

// Commit applies the history-extension rule from display.py's read_line tail:
// a cancelled, empty, duplicate-of-prior, or no_save-listed result resets the
// scratch row to empty; otherwise the scratch row is overwritten with the
// final text and a fresh empty row is opened for next time.
func (e *Editor) Commit(outcome Outcome) {
	buf := e.buf
	n := buf.RowCount()
	text := outcome.Text
	skip := outcome.Cancelled || text == "" || (e.opts.NoSave != nil && e.opts.NoSave[text])
	if !skip && n > 1 {
		if buf.RowAt(n-2) == text {
			skip = true
		}
	}
	if skip {
		buf.SetCurrentRow("")
		return
	}
	buf.SetCurrentRow(text)
	buf.AppendRow()
}
