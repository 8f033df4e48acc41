package viz

import (
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/pathtrack/internal/nav"
)

// PlotSeries draws one labelled line chart.
func PlotSeries(caption string, values []float64, w, h int) string {
	if len(values) == 0 {
		return ""
	}
	return asciigraph.Plot(values, asciigraph.Height(h), asciigraph.Width(w), asciigraph.Caption(caption))
}

// PlotMany overlays several series in one chart with a legend.
func PlotMany(caption string, names []string, series [][]float64, w, h int) string {
	if len(series) == 0 {
		return ""
	}
	colors := []asciigraph.AnsiColor{asciigraph.Green, asciigraph.Yellow, asciigraph.Cyan, asciigraph.Red}
	used := make([]asciigraph.AnsiColor, len(series))
	for i := range series {
		used[i] = colors[i%len(colors)]
	}
	return asciigraph.PlotMany(series,
		asciigraph.Height(h),
		asciigraph.Width(w),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(used...),
		asciigraph.SeriesLegends(names...),
	)
}

// RenderScene draws the path and a trajectory on a braille canvas of
// w×h cells.
func RenderScene(path nav.Path, traj []nav.Pose, w, h int) string {
	c := NewCanvas(w, h)
	frame := make([]nav.Pose, 0, len(path)+len(traj))
	frame = append(frame, path...)
	frame = append(frame, traj...)
	vp := FitViewport(c, frame)

	c.DrawPolyline(vp, path)
	c.DrawPolyline(vp, traj)
	if goal, ok := path.Last(); ok {
		c.DrawMarker(vp, goal)
	}
	return c.String()
}
