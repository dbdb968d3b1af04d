// Package textwrap measures and wraps text the way the original
// implementation's display module did: a table of East-Asian width
// exceptions layered over the usual "everything else is one cell" rule.
package textwrap

import "sort"

// widthRange is one entry of the exception table: runes in [lo, hi] all
// carry the same cell width.
type widthRange struct {
	lo, hi rune
	width  int
}

// widthTable lists the combining-mark (width 0) and wide/fullwidth (width 2)
// exception ranges, grounded on original_source/display.py's `_char_widths`.
// Anything not covered here is a single cell, matching the fallback in
// get_width.
var widthTable = []widthRange{
	{0x0300, 0x036F, 0}, // combining diacritical marks
	{0x0483, 0x0489, 0},
	{0x0591, 0x05BD, 0},
	{0x0610, 0x061A, 0},
	{0x064B, 0x065F, 0},
	{0x0670, 0x0670, 0},
	{0x06D6, 0x06DC, 0},
	{0x20D0, 0x20FF, 0}, // combining marks for symbols
	{0xFE20, 0xFE2F, 0}, // combining half marks
	{0x1100, 0x115F, 2}, // Hangul Jamo
	{0x2E80, 0x303E, 2}, // CJK radicals, kangxi, symbols/punctuation
	{0x3041, 0x33FF, 2}, // hiragana .. CJK compat
	{0x3400, 0x4DBF, 2}, // CJK extension A
	{0x4E00, 0x9FFF, 2}, // CJK unified ideographs
	{0xA000, 0xA4CF, 2}, // Yi
	{0xAC00, 0xD7A3, 2}, // Hangul syllables
	{0xF900, 0xFAFF, 2}, // CJK compatibility ideographs
	{0xFE30, 0xFE4F, 2}, // CJK compatibility forms
	{0xFF00, 0xFF60, 2}, // fullwidth forms
	{0xFFE0, 0xFFE6, 2},
	{0x20000, 0x2FFFD, 2}, // CJK extension B+ / supplementary ideographic
	{0x30000, 0x3FFFD, 2},
}

func init() {
	sort.Slice(widthTable, func(i, j int) bool { return widthTable[i].lo < widthTable[j].lo })
}

// Width returns the terminal cell width of a single rune: 0 for combining
// marks, 2 for wide/fullwidth CJK, 1 for everything else. 0x0E and 0x0F
// (shift-in/shift-out) are special-cased to 0, matching get_width's
// treatment of the two charset-switch control codes as invisible.
func Width(r rune) int {
	if r == 0x0e || r == 0x0f {
		return 0
	}
	i := sort.Search(len(widthTable), func(i int) bool { return widthTable[i].hi >= r })
	if i < len(widthTable) && widthTable[i].lo <= r {
		return widthTable[i].width
	}
	return 1
}

// StringWidth sums the cell width of every rune in s.
func StringWidth(s string) int {
	total := 0
	for _, r := range s {
		total += Width(r)
	}
	return total
}
