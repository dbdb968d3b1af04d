// Package termcolor detects the controlling terminal's foreground/background
// colors and answers OSC 10/11 color queries coming from the wrapped shell,
// the PTY relay's job rather than the Screen grid's (SPEC_FULL.md 4.A).
package termcolor

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/muesli/termenv"
)

// Hints are the terminal color facts gathered once at startup.
type Hints struct {
	OscFg     string
	OscBg     string
	ColorFGBG string
	Term      string
	ColorTerm string
}

// Detect reads the real terminal's colors via termenv. It must be called
// before the terminal is put into raw mode.
func Detect(out *os.File) Hints {
	var h Hints
	output := termenv.NewOutput(out)
	if fg := output.ForegroundColor(); fg != nil {
		h.OscFg = ColorToX11(fg)
	}
	if bg := output.BackgroundColor(); bg != nil {
		h.OscBg = ColorToX11(bg)
	}
	h.ColorFGBG = os.Getenv("COLORFGBG")
	if h.ColorFGBG == "" {
		if output.HasDarkBackground() {
			h.ColorFGBG = "15;0"
		} else {
			h.ColorFGBG = "0;15"
		}
	}
	h.Term = os.Getenv("TERM")
	h.ColorTerm = os.Getenv("COLORTERM")
	return h
}

// ColorToX11 converts a termenv.Color to the X11 "rgb:RRRR/GGGG/BBBB" format
// used in OSC 10/11 replies.
func ColorToX11(c termenv.Color) string {
	if c == nil {
		return ""
	}
	if v, ok := c.(termenv.RGBColor); ok {
		hex := string(v)
		if len(hex) == 7 && hex[0] == '#' {
			r, _ := strconv.ParseUint(hex[1:3], 16, 8)
			g, _ := strconv.ParseUint(hex[3:5], 16, 8)
			b, _ := strconv.ParseUint(hex[5:7], 16, 8)
			return fmt.Sprintf("rgb:%04x/%04x/%04x", r*0x101, g*0x101, b*0x101)
		}
	}
	rgb := termenv.ConvertToRGB(c)
	r := uint8(rgb.R*255 + 0.5)
	g := uint8(rgb.G*255 + 0.5)
	b := uint8(rgb.B*255 + 0.5)
	return fmt.Sprintf("rgb:%04x/%04x/%04x", uint16(r)*0x101, uint16(g)*0x101, uint16(b)*0x101)
}

// FallbackPalette derives OSC 10/11 values from a COLORFGBG string when the
// real terminal colors could not be detected (e.g. stdout is not a tty).
func FallbackPalette(colorfgbg string) (fg, bg string) {
	parts := strings.Split(strings.TrimSpace(colorfgbg), ";")
	bgDark := true
	bgField := ""
	if len(parts) >= 2 {
		bgField = strings.TrimSpace(parts[1])
	} else if len(parts) == 1 {
		bgField = strings.TrimSpace(parts[0])
	}
	if bgField != "" {
		if idx, err := strconv.Atoi(bgField); err == nil {
			bgDark = idx < 8
		}
	}
	if bgDark {
		return "rgb:ffff/ffff/ffff", "rgb:0000/0000/0000"
	}
	return "rgb:0000/0000/0000", "rgb:ffff/ffff/ffff"
}

// RespondOSCColors scans data just read from the PTY master for OSC 10/11
// queries ("\033]10;?" / "\033]11;?") and writes the matching reply to w.
func RespondOSCColors(w io.Writer, data []byte, h Hints) {
	if h.OscFg != "" && bytes.Contains(data, []byte("\033]10;?")) {
		fmt.Fprintf(w, "\033]10;%s\033\\", h.OscFg)
	}
	if h.OscBg != "" && bytes.Contains(data, []byte("\033]11;?")) {
		fmt.Fprintf(w, "\033]11;%s\033\\", h.OscBg)
	}
}
