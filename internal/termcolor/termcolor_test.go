package termcolor

import (
	"bytes"
	"testing"

	"github.com/muesli/termenv"
)

func TestColorToX11RGB(t *testing.T) {
	got := ColorToX11(termenv.RGBColor("#ff0000"))
	want := "rgb:ffff/0000/0000"
	if got != want {
		t.Fatalf("ColorToX11() = %q, want %q", got, want)
	}
}

func TestColorToX11Nil(t *testing.T) {
	if got := ColorToX11(nil); got != "" {
		t.Fatalf("ColorToX11(nil) = %q, want empty", got)
	}
}

func TestFallbackPaletteDarkBackground(t *testing.T) {
	fg, bg := FallbackPalette("15;0")
	if fg != "rgb:ffff/ffff/ffff" || bg != "rgb:0000/0000/0000" {
		t.Fatalf("FallbackPalette(dark) = %q,%q", fg, bg)
	}
}

func TestFallbackPaletteLightBackground(t *testing.T) {
	fg, bg := FallbackPalette("0;15")
	if fg != "rgb:0000/0000/0000" || bg != "rgb:ffff/ffff/ffff" {
		t.Fatalf("FallbackPalette(light) = %q,%q", fg, bg)
	}
}

func TestRespondOSCColorsAnswersForegroundQuery(t *testing.T) {
	var buf bytes.Buffer
	h := Hints{OscFg: "rgb:ffff/0000/0000"}
	RespondOSCColors(&buf, []byte("\033]10;?\033\\"), h)
	if !bytes.Contains(buf.Bytes(), []byte("rgb:ffff/0000/0000")) {
		t.Fatalf("RespondOSCColors() = %q, want fg reply", buf.String())
	}
}

func TestRespondOSCColorsNoQueryIsNoop(t *testing.T) {
	var buf bytes.Buffer
	h := Hints{OscFg: "rgb:ffff/0000/0000", OscBg: "rgb:0000/0000/0000"}
	RespondOSCColors(&buf, []byte("plain output\n"), h)
	if buf.Len() != 0 {
		t.Fatalf("RespondOSCColors() wrote %q, want nothing", buf.String())
	}
}
