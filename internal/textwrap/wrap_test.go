package textwrap

import "testing"

func TestWidthASCII(t *testing.T) {
	if Width('a') != 1 {
		t.Fatalf("Width('a') = %d, want 1", Width('a'))
	}
}

func TestWidthCombiningMark(t *testing.T) {
	if Width('́') != 0 {
		t.Fatalf("Width(acute accent) = %d, want 0", Width('́'))
	}
}

func TestWidthWideCJK(t *testing.T) {
	if Width('中') != 2 {
		t.Fatalf("Width('中') = %d, want 2", Width('中'))
	}
}

func TestStringWidthMixed(t *testing.T) {
	if got := StringWidth("a中b"); got != 4 {
		t.Fatalf("StringWidth(\"a中b\") = %d, want 4", got)
	}
}

func TestWrapBreaksBeforeOverflow(t *testing.T) {
	lines := Wrap("abcdef", 3)
	want := []string{"abc", "def"}
	if len(lines) != len(want) {
		t.Fatalf("Wrap() = %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("Wrap() = %v, want %v", lines, want)
		}
	}
}

func TestWrapForcedBreakOnNewline(t *testing.T) {
	lines := Wrap("ab\ncdef", 10)
	want := []string{"ab", "cdef"}
	if len(lines) != 2 || lines[0] != want[0] || lines[1] != want[1] {
		t.Fatalf("Wrap() = %v, want %v", lines, want)
	}
}

func TestWrapWideCharCountsTwoCells(t *testing.T) {
	lines := Wrap("中中中", 4)
	if len(lines) != 2 || lines[0] != "中中" || lines[1] != "中" {
		t.Fatalf("Wrap() = %v, want [中中 中]", lines)
	}
}

func TestWrapJoinedPadsContinuationLines(t *testing.T) {
	got := WrapJoined("abcdef", 3, 2, "\n")
	want := "abc\n  def"
	if got != want {
		t.Fatalf("WrapJoined() = %q, want %q", got, want)
	}
}

func TestCursorPositionAfterWrap(t *testing.T) {
	row, col := CursorPosition("abcdef", 3, 4)
	if row != 1 || col != 1 {
		t.Fatalf("CursorPosition() = (%d,%d), want (1,1)", row, col)
	}
}
