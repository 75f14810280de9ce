package tui

import (
	"strings"

	"github.com/verte-zerg/signtutor/internal/model"
)

var handGlyphs = []rune{'o', '*', '+', 'x'}

// renderLandmarks plots normalized landmarks onto a width x height grid.
// Coordinates outside [0,1] are clamped to the edge.
func renderLandmarks(hands [][]model.Landmark, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	grid := make([][]rune, height)
	for y := range grid {
		grid[y] = []rune(strings.Repeat(" ", width))
	}
	for h, points := range hands {
		glyph := handGlyphs[h%len(handGlyphs)]
		for i, p := range points {
			x := scale(p.X, width)
			y := scale(p.Y, height)
			if i == 0 {
				grid[y][x] = '@'
				continue
			}
			if grid[y][x] != '@' {
				grid[y][x] = glyph
			}
		}
	}
	lines := make([]string, height)
	for y, row := range grid {
		lines[y] = string(row)
	}
	return strings.Join(lines, "\n")
}

func scale(v float64, n int) int {
	i := int(v * float64(n))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
