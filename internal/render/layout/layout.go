// Package layout shapes text for fixed-width character rows.
//
// Widths are counted in bytes: every byte is one display cell, including
// custom glyph codes below 0x20.
package layout

import "strings"

// PadRight appends spaces until s is width cells wide. Longer input is
// returned unchanged.
func PadRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// RightJustify prepends spaces until s is width cells wide. Longer input is
// returned unchanged.
func RightJustify(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// Center pads s on both sides to width cells; an odd remainder goes to the
// right. Input wider than width is cut to width.
func Center(s string, width int) string {
	s = Truncate(s, width)
	margin := width - len(s)
	left := margin / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", margin-left)
}

// Truncate cuts s to at most width cells.
func Truncate(s string, width int) string {
	if width < 0 {
		width = 0
	}
	if len(s) > width {
		return s[:width]
	}
	return s
}

// ASCII replaces every rune outside printable ASCII with '?', so that one
// rune maps to one display cell.
func ASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r > 0x7E {
			b.WriteByte('?')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
