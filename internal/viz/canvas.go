package viz

import (
	"math"
	"strings"

	"github.com/san-kum/pathtrack/internal/nav"
)

// Braille cells are 2x4 dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
//
// offset from U+2800.
const brailleBlank = 0x2800

var dotBits = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a Width×Height grid of braille cells, addressed in dots
// ((Width*2) × (Height*4)).
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, Grid: make([][]rune, h)}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

func (c *Canvas) DotWidth() int  { return c.Width * 2 }
func (c *Canvas) DotHeight() int { return c.Height * 4 }

func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 || x >= c.DotWidth() || y >= c.DotHeight() {
		return
	}
	c.Grid[y/4][x/2] |= dotBits[y%4][x%2]
}

func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x >= c.DotWidth() || y >= c.DotHeight() {
		return false
	}
	return c.Grid[y/4][x/2]&dotBits[y%4][x%2] != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := 1, 1
	if x1 < x0 {
		sx = -1
	}
	if y1 < y0 {
		sy = -1
	}
	err := dx - dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Viewport maps world metres onto canvas dots with equal scale on both
// axes and y up.
type Viewport struct {
	cx, cy float64
	scale  float64
	w, h   int
}

// FitViewport frames every point with a margin.
func FitViewport(c *Canvas, pts []nav.Pose) Viewport {
	vp := Viewport{w: c.DotWidth(), h: c.DotHeight(), scale: 1}
	if len(pts) == 0 {
		return vp
	}
	minX, maxX := pts[0].X, pts[0].X
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	spanX := math.Max(maxX-minX, 1) * 1.15
	spanY := math.Max(maxY-minY, 1) * 1.15
	vp.cx, vp.cy = (minX+maxX)/2, (minY+maxY)/2
	// braille dots are roughly square on a terminal, so one scale fits both axes
	vp.scale = math.Min(float64(vp.w-1)/spanX, float64(vp.h-1)/spanY)
	return vp
}

func (v Viewport) Project(p nav.Pose) (int, int) {
	x := float64(v.w)/2 + (p.X-v.cx)*v.scale
	y := float64(v.h)/2 - (p.Y-v.cy)*v.scale
	return int(math.Round(x)), int(math.Round(y))
}

func (c *Canvas) DrawPolyline(v Viewport, pts []nav.Pose) {
	for i := 1; i < len(pts); i++ {
		x0, y0 := v.Project(pts[i-1])
		x1, y1 := v.Project(pts[i])
		c.DrawLine(x0, y0, x1, y1)
	}
	if len(pts) == 1 {
		c.Set(v.Project(pts[0]))
	}
}

// DrawMarker draws a small cross centred on p.
func (c *Canvas) DrawMarker(v Viewport, p nav.Pose) {
	x, y := v.Project(p)
	c.DrawLine(x-2, y, x+2, y)
	c.DrawLine(x, y-2, x, y+2)
}

// DrawAgent draws the agent position with a heading tick of length l metres.
func (c *Canvas) DrawAgent(v Viewport, p nav.Pose, l float64) {
	x0, y0 := v.Project(p)
	tip := nav.Pose{X: p.X + l*math.Cos(p.Heading), Y: p.Y + l*math.Sin(p.Heading)}
	x1, y1 := v.Project(tip)
	c.DrawLine(x0, y0, x1, y1)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			c.Set(x0+dx, y0+dy)
		}
	}
}
