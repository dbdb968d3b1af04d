package textwrap

import "strings"

// Wrap breaks display into terminal lines of at most width cells, forcing a
// break on every embedded '\n' and otherwise breaking just before the
// character that would overflow the line. width <= 0 disables wrapping
// (embedded newlines still split).
func Wrap(display string, width int) []string {
	var lines []string
	var cur strings.Builder
	curWidth := 0
	flush := func() {
		lines = append(lines, cur.String())
		cur.Reset()
		curWidth = 0
	}
	for _, r := range display {
		if r == '\n' {
			flush()
			continue
		}
		w := Width(r)
		if width > 0 && curWidth+w > width && cur.Len() > 0 {
			flush()
		}
		cur.WriteRune(r)
		curWidth += w
	}
	flush()
	return lines
}

// WrapJoined wraps display and joins the resulting lines with end (the
// original's wrap_multi_lines default end is "\r\n" for direct terminal
// output), left-padding every line after the first by padding spaces.
func WrapJoined(display string, width, padding int, end string) string {
	lines := Wrap(display, width)
	if padding > 0 {
		pad := strings.Repeat(" ", padding)
		for i := 1; i < len(lines); i++ {
			lines[i] = pad + lines[i]
		}
	}
	return strings.Join(lines, end)
}

// CursorPosition reports the (row, col) a cursor sitting after the first
// cursorRunes runes of display would land on once display is wrapped to
// width, the same computation print_lines uses to re-home the terminal
// cursor after printing a multi-line, wrapped buffer.
func CursorPosition(display string, width, cursorRunes int) (row, col int) {
	runes := []rune(display)
	if cursorRunes > len(runes) {
		cursorRunes = len(runes)
	}
	prefix := string(runes[:cursorRunes])
	lines := Wrap(prefix, width)
	if len(lines) == 0 {
		return 0, 0
	}
	row = len(lines) - 1
	col = StringWidth(lines[row])
	return row, col
}
