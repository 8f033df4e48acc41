package analysis

import (
	"math"
	"strings"

	"github.com/san-kum/pathtrack/internal/nav"
)

type Point struct{ X, Y float64 }

// ErrorPortrait is the trajectory of (lateral error, heading error).
type ErrorPortrait struct {
	Points []Point
}

func NewErrorPortrait(errs []nav.ErrorState) *ErrorPortrait {
	p := &ErrorPortrait{Points: make([]Point, len(errs))}
	for i, e := range errs {
		p.Points[i] = Point{X: e[1], Y: e[2]}
	}
	return p
}

// PortraitToASCII plots the portrait on a width×height character grid with
// axes drawn where they cross the visible area.
func PortraitToASCII(portrait *ErrorPortrait, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	lo, hi := portrait.bounds()
	col := func(x float64) int { return int((x - lo.X) / (hi.X - lo.X) * float64(width-1)) }
	row := func(y float64) int { return height - 1 - int((y-lo.Y)/(hi.Y-lo.Y)*float64(height-1)) }

	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", width))
	}
	put := func(r, c int, ch rune, over bool) {
		if r < 0 || r >= height || c < 0 || c >= width {
			return
		}
		if over || grid[r][c] == ' ' {
			grid[r][c] = ch
		}
	}

	for _, p := range portrait.Points {
		put(row(p.Y), col(p.X), '•', true)
	}
	if lo.X <= 0 && hi.X >= 0 {
		for r := 0; r < height; r++ {
			put(r, col(0), '│', false)
		}
	}
	if lo.Y <= 0 && hi.Y >= 0 {
		for c := 0; c < width; c++ {
			put(row(0), c, '─', false)
		}
	}

	var sb strings.Builder
	for _, r := range grid {
		sb.WriteString(string(r))
		sb.WriteRune('\n')
	}
	return sb.String()
}

// bounds is the bounding box padded by 10% on each side.
func (p *ErrorPortrait) bounds() (lo, hi Point) {
	lo, hi = p.Points[0], p.Points[0]
	for _, pt := range p.Points[1:] {
		lo.X, hi.X = math.Min(lo.X, pt.X), math.Max(hi.X, pt.X)
		lo.Y, hi.Y = math.Min(lo.Y, pt.Y), math.Max(hi.Y, pt.Y)
	}
	dx, dy := hi.X-lo.X, hi.Y-lo.Y
	if dx == 0 {
		dx = 1
	}
	if dy == 0 {
		dy = 1
	}
	lo.X, hi.X = lo.X-0.1*dx, hi.X+0.1*dx
	lo.Y, hi.Y = lo.Y-0.1*dy, hi.Y+0.1*dy
	return lo, hi
}
