package dispatch

import (
	"fmt"
	"strings"

	"github.com/kaixinguo360/lls/internal/genai"
)

// verbShow repaints the current screen state (the teacher's analogue is
// Overlay.RenderScreen): the visible window plus cursor position.
func (d *Dispatcher) verbShow() {
	x, y := d.Screen.Cursor()
	fmt.Fprintf(d.Out, "--- screen (cursor %d,%d) ---\r\n", x, y)
	fmt.Fprint(d.Out, d.Screen.Text("\r\n"), "\r\n")
}

// verbChat prints the active session's transcript, when it is a session
// kind that keeps one (chat sessions; text sessions are stateless).
func (d *Dispatcher) verbChat() {
	s := d.active()
	if s == nil {
		fmt.Fprint(d.Out, "no active session\r\n")
		return
	}
	chat, ok := s.(*genai.ChatSession)
	if !ok {
		fmt.Fprintf(d.Out, "session type %q keeps no transcript\r\n", s.Type())
		return
	}
	for _, m := range chat.Messages {
		fmt.Fprintf(d.Out, "[%s] %s\r\n", m.Role, m.Content)
	}
}

// verbEsc handles the esc sub-commands: err (unresolved escape ring), saved
// (every resolved sequence, if Debug is on), debug (toggle Debug), status
// (counts).
func (d *Dispatcher) verbEsc(arg string) {
	sub, _ := parseVerb(arg)
	switch sub {
	case "err", "":
		for _, e := range d.Screen.EscErrors() {
			fmt.Fprintf(d.Out, "%q\r\n", e)
		}
	case "saved":
		for _, r := range d.Screen.EscRecords() {
			fmt.Fprintf(d.Out, "%q ignored=%v\r\n", r.Seq, r.Ignore)
		}
	case "debug":
		d.Screen.Debug = !d.Screen.Debug
		fmt.Fprintf(d.Out, "esc debug = %v\r\n", d.Screen.Debug)
	case "status":
		chars, lines := d.Screen.DroppedCounts()
		fmt.Fprintf(d.Out, "dropped chars=%d lines=%d errors=%d\r\n", chars, lines, len(d.Screen.EscErrors()))
	default:
		fmt.Fprintf(d.Out, "esc %s: unknown sub-command\r\n", sub)
	}
}

// verbErr prints the last captured dispatch-failure trace (error kind 4).
func (d *Dispatcher) verbErr() {
	d.mu.Lock()
	trace := d.lastErrTrace
	d.mu.Unlock()
	if trace == "" {
		fmt.Fprint(d.Out, "no error recorded\r\n")
		return
	}
	fmt.Fprintf(d.Out, "%s\r\n", trace)
}

func (d *Dispatcher) active() genai.Session {
	id, ok := d.Sessions.Active()
	if !ok {
		return nil
	}
	s, _ := d.Sessions.Session(id)
	return s
}

// verbConfig dumps the active session's scalar configuration fields.
func (d *Dispatcher) verbConfig() {
	s := d.active()
	if s == nil {
		fmt.Fprint(d.Out, "no active session\r\n")
		return
	}
	for _, c := range s.Configs() {
		fmt.Fprintf(d.Out, "%s (%s) = %s\r\n", c.Name, c.Type, c.Value)
	}
}

// verbSet implements `set KEY [VAL]`: with VAL, write it directly; without,
// open a multi-line editor seeded with the current value.
func (d *Dispatcher) verbSet(arg string) {
	s := d.active()
	if s == nil {
		fmt.Fprint(d.Out, "no active session\r\n")
		return
	}
	key, val := parseVerb(arg)
	if key == "" {
		fmt.Fprint(d.Out, "usage: set KEY [VALUE]\r\n")
		return
	}
	if val == "" {
		cur, _ := s.Get(key)
		edited, cancelled, ok := d.readLine("set:"+key, fmt.Sprintf("%s= ", key), cur)
		if !ok || cancelled {
			return
		}
		val = edited
	}
	if err := s.Set(key, val); err != nil {
		d.recordDispatchErr("set", err)
	}
}

// verbGet implements `get [KEY]`: one field, or every Configs() entry.
func (d *Dispatcher) verbGet(arg string) {
	s := d.active()
	if s == nil {
		fmt.Fprint(d.Out, "no active session\r\n")
		return
	}
	key := strings.TrimSpace(arg)
	if key == "" {
		d.verbConfig()
		return
	}
	v, ok := s.Get(key)
	if !ok {
		fmt.Fprintf(d.Out, "%s: no such key\r\n", key)
		return
	}
	fmt.Fprintf(d.Out, "%s = %s\r\n", key, v)
}

// verbMode switches the active session by id.
func (d *Dispatcher) verbMode(arg string) {
	id := strings.TrimSpace(arg)
	if id == "" {
		d.verbLs()
		return
	}
	if err := d.Sessions.Switch(id); err != nil {
		d.recordDispatchErr("mode", err)
	}
}

// verbCreate prompts for a new session's id and type tag, then adds and
// activates it.
func (d *Dispatcher) verbCreate() {
	id, cancelled, ok := d.readLine("create:id", "new session id> ", "")
	if !ok || cancelled || id == "" {
		return
	}
	typ, cancelled, ok := d.readLine("create:type", "type (chat/text/mixed)> ", "chat")
	if !ok || cancelled {
		return
	}
	s, err := genai.NewByType(d.Client, strings.TrimSpace(typ))
	if err != nil {
		d.recordDispatchErr("create", err)
		return
	}
	d.Sessions.Add(id, s)
	if err := d.Sessions.Switch(id); err != nil {
		d.recordDispatchErr("create", err)
	}
}

// verbRemove drops a session by id.
func (d *Dispatcher) verbRemove(arg string) {
	id := strings.TrimSpace(arg)
	if id == "" {
		fmt.Fprint(d.Out, "usage: remove ID\r\n")
		return
	}
	d.Sessions.Remove(id)
}

// verbRename changes a session's id: `rename OLD NEW`, each id optionally
// quoted if it contains spaces.
func (d *Dispatcher) verbRename(arg string) {
	toks := tokenize(arg)
	if len(toks) != 2 {
		fmt.Fprint(d.Out, "usage: rename OLD NEW\r\n")
		return
	}
	if err := d.Sessions.Rename(toks[0], toks[1]); err != nil {
		d.recordDispatchErr("rename", err)
	}
}

// verbLs lists every session id, marking the active one.
func (d *Dispatcher) verbLs() {
	active, _ := d.Sessions.Active()
	for _, id := range d.Sessions.IDs() {
		marker := " "
		if id == active {
			marker = "*"
		}
		s, _ := d.Sessions.Session(id)
		typ := ""
		if s != nil {
			typ = s.Type()
		}
		fmt.Fprintf(d.Out, "%s %s (%s)\r\n", marker, id, typ)
	}
}
