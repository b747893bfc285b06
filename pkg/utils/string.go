package utils

import "github.com/charmbracelet/x/ansi"

// Truncate shortens s to maxLen display cells and appends an ellipsis.
// Escape sequences and wide runes are measured by their rendered width.
func Truncate(s string, maxLen int) string {
	if ansi.StringWidth(s) <= maxLen {
		return s
	}
	return ansi.Truncate(s, maxLen, "") + "..."
}

// SingleLine collapses newlines so multi-line memories fit a table row.
func SingleLine(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' {
			r = ' '
		}
		out = append(out, r)
	}
	return string(out)
}
