package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const barWidth = 10

// column describes one text table column. Max caps the cell width; longer
// cells are cut with an ellipsis. Zero means no cap.
type column struct {
	header string
	right  bool
	max    int
}

// renderTable lays rows out under cols, one string per line, header first.
func renderTable(cols []column, rows [][]string) []string {
	if len(cols) == 0 {
		return nil
	}
	cells := make([][]string, 0, len(rows)+1)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.header
	}
	cells = append(cells, header)
	for _, row := range rows {
		line := make([]string, len(cols))
		for i, c := range cols {
			if i >= len(row) {
				break
			}
			line[i] = row[i]
			if c.max > 0 && runewidth.StringWidth(line[i]) > c.max {
				line[i] = runewidth.Truncate(line[i], c.max, "…")
			}
		}
		cells = append(cells, line)
	}

	widths := make([]int, len(cols))
	for _, line := range cells {
		for i, cell := range line {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	out := make([]string, 0, len(cells))
	for _, line := range cells {
		parts := make([]string, len(cols))
		for i, cell := range line {
			if cols[i].right {
				parts[i] = runewidth.FillLeft(cell, widths[i])
			} else {
				parts[i] = runewidth.FillRight(cell, widths[i])
			}
		}
		out = append(out, strings.TrimRight(strings.Join(parts, " "), " "))
	}
	return out
}

// accuracyBar draws pct (0-100) as a fixed-width bar of '#' and '.'.
func accuracyBar(pct int) string {
	pct = min(max(pct, 0), 100)
	filled := (pct*barWidth + 50) / 100
	return strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled)
}
