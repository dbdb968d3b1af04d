// Package screen implements a hand-written VT100/ANSI grid: a fixed-width,
// scrollback-bounded text buffer driven character by character from a PTY's
// output stream. It replaces the table-driven regex scanner of the original
// implementation with an explicit state machine (see escape.go) per the
// redesign note against depending on a third-party terminal emulator.
package screen

import (
	"io"
	"strings"
	"sync"
	"unicode"
)

// Buffer names the two coexisting grids a Screen can hold.
type Buffer string

const (
	Main  Buffer = "main"
	Alter Buffer = "alter"
)

const (
	defaultMaxChars  = 8000
	defaultMaxLines  = 500
	defaultMaxHeight = 30
	ringCap          = 100

)

// HistoryBeginMarker and HistoryEndMarker bracket a scroll-off log's
// lifetime in .lls_screen_history (the former written once when the log is
// opened, via store.OpenScrollLog; the latter by Screen.Close).
const (
	HistoryBeginMarker = "[lls is beginning]\n"
	HistoryEndMarker   = "[lls is terminating]\n"
)

// grid is one buffer's cursor and line state.
type grid struct {
	lines  []string
	x, y   int
	startY int
}

func newGrid() *grid {
	return &grid{lines: []string{""}}
}

// EscRecord is one resolved escape sequence, kept only when Debug is set.
type EscRecord struct {
	Seq    string
	Ignore bool
}

// Screen is a single VT100/ANSI grid with bounded scrollback and an
// escape-sequence error ring. All exported methods are goroutine-safe.
type Screen struct {
	mu sync.Mutex

	buffers map[Buffer]*grid
	active  Buffer

	savedX, savedY int
	hasSaved       bool

	mode       escMode
	escSub     escSubState
	escBuf     []byte
	escParams  []byte
	escPrivate bool

	escErr    []string
	escRecord []EscRecord

	raw          []byte
	droppedChars int
	droppedLines int

	MaxChars  int
	MaxLines  int
	MaxHeight int

	InsertMode              bool
	LimitMove               bool
	AutoMoveToEnd           bool
	AutoMoveBetweenLine     bool
	AutoRemoveLine          bool
	KeepLogsWhenCleanScreen bool
	Debug                   bool

	// DumpSink, when set, receives lines evicted from scrollback (oldest
	// first) as they overflow MaxLines.
	DumpSink io.Writer
}

// New returns a Screen configured with the original implementation's
// defaults (max_chars=8000, max_lines=500, max_height=30).
func New() *Screen {
	return &Screen{
		buffers:   map[Buffer]*grid{Main: newGrid(), Alter: newGrid()},
		active:    Main,
		MaxChars:  defaultMaxChars,
		MaxLines:  defaultMaxLines,
		MaxHeight: defaultMaxHeight,
	}
}

// NewLineEditor returns a Screen configured as a single-line recall buffer:
// max_height=1 (only one row is ever "on screen" at a time), insert-mode
// editing, limit_move clamping the cursor to existing content rather than
// letting absolute moves grow the grid. MaxLines keeps its Screen default
// (500) since the buffer's full row history backs recall navigation.
func NewLineEditor() *Screen {
	s := New()
	s.MaxHeight = 1
	s.InsertMode = true
	s.LimitMove = true
	s.AutoMoveToEnd = true
	s.AutoRemoveLine = true
	return s
}

func (s *Screen) g() *grid {
	return s.buffers[s.active]
}

// Active reports which buffer (main/alter) is currently displayed.
func (s *Screen) Active() Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Write feeds raw child output (or keystrokes) through the VT state machine.
func (s *Screen) Write(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendRaw(p)
	for _, r := range string(p) {
		s.writeRune(r)
	}
}

// WriteChars is Write for an already-decoded string, used by callers that
// assemble text outside of the PTY path (line editor echo, generated output).
func (s *Screen) WriteChars(str string) {
	if str == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendRaw([]byte(str))
	for _, r := range str {
		s.writeRune(r)
	}
}

func (s *Screen) appendRaw(p []byte) {
	s.raw = append(s.raw, p...)
	if over := len(s.raw) - s.MaxChars; over > 0 {
		s.raw = s.raw[over:]
		s.droppedChars += over
	}
}

// writeRune is the per-character entry point: normal mode dispatches control
// characters and printable text; esc mode is handled by feedEsc.
func (s *Screen) writeRune(r rune) {
	if s.mode == modeEsc {
		s.feedEsc(r)
		return
	}
	s.writeRuneNormal(r)
}

func (s *Screen) writeRuneNormal(r rune) {
	g := s.g()
	switch r {
	case 0x07: // BEL, ignored
		return
	case 0x1b: // ESC
		s.beginEsc()
		return
	case 0x08: // BS
		if g.x > 0 {
			g.x--
			s.nor(boolPtr(false))
			if s.InsertMode {
				line := []rune(g.lines[g.y])
				if g.x < len(line) {
					line = append(line[:g.x], line[g.x+1:]...)
					g.lines[g.y] = string(line)
				}
			}
		} else if s.InsertMode && s.AutoRemoveLine && g.y > 0 {
			prev := g.lines[g.y-1]
			g.y--
			g.x = len([]rune(prev))
			g.lines[g.y] = prev + g.lines[g.y+1]
			g.lines = append(g.lines[:g.y+1], g.lines[g.y+2:]...)
		}
		s.nor(nil)
		return
	case '\r':
		g.x = 0
		s.nor(nil)
		return
	case '\n':
		if s.InsertMode {
			line := []rune(g.lines[g.y])
			cut := g.x
			if cut > len(line) {
				cut = len(line)
			}
			before, after := string(line[:cut]), string(line[cut:])
			g.lines[g.y] = before
			tail := append([]string{after}, g.lines[g.y+1:]...)
			g.lines = append(g.lines[:g.y+1], tail...)
		}
		g.y++
		g.x = 0
		s.nor(nil)
		return
	case 0x7f: // DEL, treat like backspace-erase of nothing visible; ignored
		return
	}
	if unicode.IsControl(r) {
		return
	}
	s.putChar(g, r)
}

// putChar writes one printable rune at the cursor, overwrite or insert per
// InsertMode, then advances the cursor by one.
func (s *Screen) putChar(g *grid, r rune) {
	line := []rune(g.lines[g.y])
	if g.x > len(line) {
		pad := make([]rune, g.x-len(line))
		for i := range pad {
			pad[i] = ' '
		}
		line = append(line, pad...)
	}
	if s.InsertMode {
		tail := append([]rune{r}, line[g.x:]...)
		line = append(line[:g.x], tail...)
	} else if g.x < len(line) {
		line[g.x] = r
	} else {
		line = append(line, r)
	}
	g.lines[g.y] = string(line)
	g.x++
	s.nor(boolPtr(false))
}

func boolPtr(b bool) *bool { return &b }

// nor normalizes the grid after a mutation: clamps negative coordinates,
// optionally clamps to existing bounds (limit), grows the line array to
// reach y, and right-trims then re-pads the current line to x.
func (s *Screen) nor(limitOverride *bool) {
	g := s.g()
	if g.x < 0 {
		g.x = 0
	}
	if g.y < 0 {
		g.y = 0
	}
	limit := s.LimitMove
	if limitOverride != nil {
		limit = *limitOverride
	}
	if limit {
		if g.y > len(g.lines)-1 {
			g.y = len(g.lines) - 1
		}
		if g.y >= 0 {
			if n := len([]rune(g.lines[g.y])); g.x > n {
				g.x = n
			}
		}
	}
	for g.y > len(g.lines)-1 {
		g.lines = append(g.lines, "")
	}
	line := strings.TrimRight(g.lines[g.y], " ")
	if n := len([]rune(line)); g.x > n {
		line += strings.Repeat(" ", g.x-n)
	}
	g.lines[g.y] = line
	if len(g.lines) > s.MaxLines {
		s.dump(g, s.MaxLines)
	}
}

// startY returns the first visible line for the active grid, advancing it
// monotonically as the grid grows past MaxHeight.
func (s *Screen) startY() int {
	g := s.g()
	start := 0
	if n := len(g.lines); n > s.MaxHeight {
		start = n - s.MaxHeight
	}
	if start > g.startY {
		g.startY = start
	}
	return g.startY
}

func (s *Screen) realY(y int) int {
	if y > s.MaxHeight-1 {
		y = s.MaxHeight - 1
	}
	if y < 0 {
		y = 0
	}
	return s.startY() + y
}

// dump evicts the oldest lines from g down to maxRetain, writing each to
// DumpSink (oldest first) if configured.
func (s *Screen) dump(g *grid, maxRetain int) {
	for len(g.lines) > maxRetain {
		line := g.lines[0]
		g.lines = g.lines[1:]
		if s.DumpSink != nil {
			io.WriteString(s.DumpSink, line+"\n")
		}
		if g.y > 0 {
			g.y--
		}
		if g.startY > 0 {
			g.startY--
		}
		s.droppedLines++
	}
}

// SetCursor moves the cursor to an absolute (x, y) position, 0-based.
// keep_logs_when_clean_screen pins the current scrollback offset when the
// target is (0,0), matching the original's special case for clear-then-home.
func (s *Screen) SetCursor(x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCursor(x, y)
}

func (s *Screen) setCursor(x, y int) {
	g := s.g()
	if s.KeepLogsWhenCleanScreen && x == 0 && y == 0 {
		g.startY = g.y
	}
	g.x = 0
	s.nor(nil)
	g.y = s.realY(y)
	g.x = x
	s.nor(nil)
}

// MoveCursor moves the cursor by n cells in one of the four arrow
// directions ('A' up, 'B' down, 'C' right, 'D' left), applying
// AutoMoveToEnd / AutoMoveBetweenLine wrap rules.
func (s *Screen) MoveCursor(n int, dir byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moveCursor(n, dir)
}

func (s *Screen) moveCursor(n int, dir byte) {
	g := s.g()
	switch dir {
	case 'A':
		g.y -= n
	case 'B':
		g.y += n
	case 'C':
		if s.AutoMoveBetweenLine {
			for i := 0; i < n; i++ {
				line := []rune(g.lines[g.y])
				if g.x < len(line) {
					g.x++
				} else if g.y < len(g.lines)-1 {
					g.y++
					g.x = 0
				}
			}
		} else {
			g.x += n
		}
	case 'D':
		if s.AutoMoveBetweenLine {
			for i := 0; i < n; i++ {
				if g.x > 0 {
					g.x--
				} else if g.y > 0 {
					g.y--
					g.x = len([]rune(g.lines[g.y]))
				}
			}
		} else {
			g.x -= n
		}
	}
	s.nor(nil)
	if s.AutoMoveToEnd && (dir == 'A' || dir == 'B') {
		s.nor(nil)
		g.x = len([]rune(g.lines[g.y]))
	}
}

// MoveToEnd is the esc_end behavior: move past the last character of the
// buffer, inserting a fresh empty line when the cursor is already one past
// the last line (the documented out-of-range case in the original).
func (s *Screen) MoveToEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moveToEnd()
}

func (s *Screen) moveToEnd() {
	g := s.g()
	if g.y >= len(g.lines) {
		g.lines = append(g.lines, "")
	}
	g.y = len(g.lines) - 1
	g.x = len([]rune(g.lines[g.y]))
}

// SaveCursor / RestoreCursor implement ESC 7 / ESC 8 and CSI s / CSI u: a
// single Screen-wide snapshot, not one per buffer.
func (s *Screen) SaveCursor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCursor()
}

func (s *Screen) saveCursor() {
	g := s.g()
	s.savedX, s.savedY = g.x, g.y
	s.hasSaved = true
}

func (s *Screen) RestoreCursor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restoreCursor()
}

func (s *Screen) restoreCursor() {
	if !s.hasSaved {
		return
	}
	g := s.g()
	g.x, g.y = s.savedX, s.savedY
	s.nor(nil)
}

// ClearLine implements CSI K: mode 0 clears cursor-to-end, 1 start-to-cursor,
// 2 the whole line.
func (s *Screen) ClearLine(mode int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLine(mode)
}

func (s *Screen) clearLine(mode int) {
	g := s.g()
	line := []rune(g.lines[g.y])
	switch mode {
	case 1:
		for i := 0; i < g.x && i < len(line); i++ {
			line[i] = ' '
		}
	case 2:
		line = []rune{}
	default:
		if g.x < len(line) {
			line = line[:g.x]
		}
	}
	g.lines[g.y] = string(line)
}

// ClearScreen implements CSI J: mode 0 drops the lines below the cursor's
// line, 1 blanks every line above it, 2 clears the whole screen. Modes 0 and
// 1 leave the cursor's own line as it is.
func (s *Screen) ClearScreen(mode int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearScreen(mode)
}

func (s *Screen) clearScreen(mode int) {
	g := s.g()
	switch mode {
	case 1:
		for i := 0; i < g.y && i < len(g.lines); i++ {
			g.lines[i] = ""
		}
	case 2:
		if s.KeepLogsWhenCleanScreen {
			g.startY = g.y
		}
		g.lines = []string{""}
		g.x, g.y = 0, 0
	default:
		g.lines = g.lines[:g.y+1]
	}
}

// DeleteAtCursor implements CSI 3~ (Delete key): shift left in insert mode,
// merge the next line on a line boundary, or blank the cell in overwrite mode.
func (s *Screen) DeleteAtCursor() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteAtCursor()
}

func (s *Screen) deleteAtCursor() {
	g := s.g()
	line := []rune(g.lines[g.y])
	if s.InsertMode {
		if g.x < len(line) {
			line = append(line[:g.x], line[g.x+1:]...)
			g.lines[g.y] = string(line)
		} else if s.AutoRemoveLine && g.y < len(g.lines)-1 {
			g.lines[g.y] = g.lines[g.y] + g.lines[g.y+1]
			g.lines = append(g.lines[:g.y+1], g.lines[g.y+2:]...)
		}
		return
	}
	if g.x < len(line) {
		line[g.x] = ' '
		g.lines[g.y] = string(line)
	}
}

// RowCount returns the number of rows in the active buffer, raw (unwindowed)
// index space. Exposed for internal/lineedit, whose recall buffers use a
// Screen's full lines array as committed history regardless of MaxHeight.
func (s *Screen) RowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.g().lines)
}

// RowAt returns row i's text in raw index space, or "" if out of range.
func (s *Screen) RowAt(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.g()
	if i < 0 || i >= len(g.lines) {
		return ""
	}
	return g.lines[i]
}

// CurrentRow returns the cursor's raw (unwindowed) row index.
func (s *Screen) CurrentRow() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.g().y
}

// SetCurrentRow overwrites the cursor's row with text and moves the cursor
// to its end, used when a line editor commits or discards an entry.
func (s *Screen) SetCurrentRow(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.g()
	g.lines[g.y] = text
	g.x = len([]rune(text))
}

// AppendRow starts a fresh empty row after the current one and moves the
// cursor onto it, the line editor's equivalent of committing an entry and
// opening a new scratch line for the next one.
func (s *Screen) AppendRow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.g()
	g.lines = append(g.lines[:g.y+1], append([]string{""}, g.lines[g.y+1:]...)...)
	g.y++
	g.x = 0
}

// RemoveRow deletes row i, shifting subsequent rows up and clamping the
// cursor if it sat at or past i. Exposed for internal/lineedit's duplicate-
// entry elision (display.py's "buf.lines = buf.lines[:-1]" splice).
func (s *Screen) RemoveRow(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.g()
	if i < 0 || i >= len(g.lines) {
		return
	}
	g.lines = append(g.lines[:i], g.lines[i+1:]...)
	if len(g.lines) == 0 {
		g.lines = []string{""}
	}
	if g.y > i {
		g.y--
	} else if g.y >= len(g.lines) {
		g.y = len(g.lines) - 1
	}
	if n := len([]rune(g.lines[g.y])); g.x > n {
		g.x = n
	}
}

// SwitchBuffer selects the main or alternate grid, each retaining its own
// lines and cursor across switches (see SPEC_FULL.md's alternate-buffer
// resolution).
func (s *Screen) SwitchBuffer(b Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.switchBuffer(b)
}

func (s *Screen) switchBuffer(b Buffer) {
	s.active = b
}

// Text renders the visible window of the active grid (startY..startY+height)
// joined by sep; blank lines at the end of the window are kept.
func (s *Screen) Text(sep string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.g()
	start := s.startY()
	end := start + s.MaxHeight
	if end > len(g.lines) {
		end = len(g.lines)
	}
	if start > end {
		start = end
	}
	return strings.Join(g.lines[start:end], sep)
}

// CurrentLine returns the text of the line the cursor sits on.
func (s *Screen) CurrentLine() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.g()
	if g.y < 0 || g.y >= len(g.lines) {
		return ""
	}
	return g.lines[g.y]
}

// Cursor returns the active grid's cursor position relative to the visible
// window (i.e. already offset by startY).
func (s *Screen) Cursor() (x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.g()
	return g.x, g.y - s.startY()
}

// Raw returns the bounded ring of raw bytes written to the screen so far.
func (s *Screen) Raw() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.raw))
	copy(out, s.raw)
	return out
}

// EscErrors returns the ring (capped at 100) of unresolved escape sequences.
func (s *Screen) EscErrors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.escErr))
	copy(out, s.escErr)
	return out
}

// EscRecords returns the ring of every resolved escape sequence seen since
// Debug was enabled, for the esc verb's "saved"/"debug" sub-views.
func (s *Screen) EscRecords() []EscRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EscRecord, len(s.escRecord))
	copy(out, s.escRecord)
	return out
}

func (s *Screen) recordEscErr(seq []byte) {
	s.escErr = append(s.escErr, string(seq))
	if len(s.escErr) > ringCap {
		s.escErr = s.escErr[len(s.escErr)-ringCap:]
	}
}

func (s *Screen) recordEsc(seq []byte, ignored bool) {
	if !s.Debug {
		return
	}
	s.escRecord = append(s.escRecord, EscRecord{Seq: string(seq), Ignore: ignored})
	if len(s.escRecord) > ringCap {
		s.escRecord = s.escRecord[len(s.escRecord)-ringCap:]
	}
}

// DroppedCounts reports how many characters and lines have been evicted from
// the raw ring and scrollback respectively, for diagnostics.
func (s *Screen) DroppedCounts() (chars, lines int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.droppedChars, s.droppedLines
}

// Close flushes any remaining lines to DumpSink and writes the terminating
// marker, mirroring the original's close()/dump_history() pair. The
// matching begin marker is the scroll log's job (store.OpenScrollLog), since
// it brackets the whole session rather than just this final flush. Safe to
// call at most once per Screen.
func (s *Screen) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DumpSink == nil {
		return
	}
	g := s.g()
	for _, line := range g.lines {
		io.WriteString(s.DumpSink, line+"\n")
	}
	io.WriteString(s.DumpSink, HistoryEndMarker)
}
