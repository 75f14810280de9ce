package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// wrapText breaks text on spaces so no line is wider than width cells.
// Words wider than width are split.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if width <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var lines []string
	var line strings.Builder
	lineWidth := 0
	flush := func() {
		lines = append(lines, line.String())
		line.Reset()
		lineWidth = 0
	}

	for _, word := range words {
		w := runewidth.StringWidth(word)
		if lineWidth > 0 && lineWidth+1+w > width {
			flush()
		}
		if w > width {
			for _, r := range word {
				rw := runewidth.RuneWidth(r)
				if lineWidth+rw > width && lineWidth > 0 {
					flush()
				}
				line.WriteRune(r)
				lineWidth += rw
			}
			continue
		}
		if lineWidth > 0 {
			line.WriteByte(' ')
			lineWidth++
		}
		line.WriteString(word)
		lineWidth += w
	}
	if lineWidth > 0 {
		flush()
	}
	return lines
}
