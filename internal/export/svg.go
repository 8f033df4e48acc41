package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/pathtrack/internal/nav"
)

const (
	pathColor  = "#555555"
	trajColor  = "#00ff00"
	startColor = "#00aaff"
	goalColor  = "#ff3b30"
)

// frame maps world coordinates into an SVG viewport with equal scale on
// both axes and y pointing up.
type frame struct {
	minX, minY float64
	scale      float64
	offX, offY float64
	height     float64
}

func newFrame(points []nav.Pose, width, height int) frame {
	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	pad := 0.1 * math.Max(maxX-minX, maxY-minY)
	if pad == 0 {
		pad = 1
	}
	minX, maxX = minX-pad, maxX+pad
	minY, maxY = minY-pad, maxY+pad

	scale := math.Min(float64(width)/(maxX-minX), float64(height)/(maxY-minY))
	return frame{
		minX:   minX,
		minY:   minY,
		scale:  scale,
		offX:   (float64(width) - scale*(maxX-minX)) / 2,
		offY:   (float64(height) - scale*(maxY-minY)) / 2,
		height: float64(height),
	}
}

func (f frame) project(p nav.Pose) (float64, float64) {
	x := f.offX + (p.X-f.minX)*f.scale
	y := f.height - f.offY - (p.Y-f.minY)*f.scale
	return x, y
}

func (f frame) polyline(sb *strings.Builder, pts []nav.Pose, attrs string) {
	if len(pts) < 2 {
		return
	}
	sb.WriteString(`<path fill="none" ` + attrs + ` d="`)
	for i, p := range pts {
		x, y := f.project(p)
		if i == 0 {
			fmt.Fprintf(sb, "M%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString("\"/>\n")
}

// SceneToSVG draws the reference path, the driven trajectory and the
// start and goal markers.
func SceneToSVG(path nav.Path, traj []nav.Pose, width, height int) string {
	all := make([]nav.Pose, 0, len(path)+len(traj))
	all = append(all, path...)
	all = append(all, traj...)
	if len(all) == 0 || width <= 0 || height <= 0 {
		return ""
	}
	f := newFrame(all, width, height)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	f.polyline(&sb, path, fmt.Sprintf(`stroke="%s" stroke-width="2" stroke-dasharray="6 4"`, pathColor))
	f.polyline(&sb, traj, fmt.Sprintf(`stroke="%s" stroke-width="1.5"`, trajColor))

	if len(traj) > 0 {
		x, y := f.project(traj[0])
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="4" fill="%s"/>`+"\n", x, y, startColor)
	}
	if goal, ok := path.Last(); ok {
		x, y := f.project(goal)
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="5" fill="none" stroke="%s" stroke-width="2"/>`+"\n", x, y, goalColor)
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}
