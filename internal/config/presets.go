package config

import (
	"math"
	"sort"

	"github.com/san-kum/pathtrack/internal/nav"
)

// PathGenerators build a path of the given size with roughly spacing
// metres between waypoints. Headings follow the path tangent.
var PathGenerators = map[string]func(scale, spacing float64) nav.Path{
	"straight": func(scale, spacing float64) nav.Path {
		return sample(func(s float64) (float64, float64) { return s, 0 }, scale, spacing)
	},
	"s_curve": func(scale, spacing float64) nav.Path {
		return sample(func(s float64) (float64, float64) {
			return s, 0.25 * scale * math.Sin(2*math.Pi*s/scale)
		}, 2*scale, spacing)
	},
	// closed shapes stop short of the start so the goal is not the start
	"circle": func(scale, spacing float64) nav.Path {
		arc := 1.8 * math.Pi * scale
		return sample(func(s float64) (float64, float64) {
			a := s / scale
			return scale * math.Sin(a), scale * (1 - math.Cos(a))
		}, arc, spacing)
	},
	"figure_eight": func(scale, spacing float64) nav.Path {
		// oversample the lemniscate parameter, then thin to spacing
		return thin(sample(func(s float64) (float64, float64) {
			a := s / scale
			return scale * math.Sin(a), 0.5 * scale * math.Sin(2*a)
		}, 1.8*math.Pi*scale, spacing/4), spacing)
	},
	"square": func(scale, spacing float64) nav.Path {
		corners := []nav.Pose{{X: 0, Y: 0}, {X: scale, Y: 0}, {X: scale, Y: scale}, {X: 0, Y: scale}}
		var path nav.Path
		for i, a := range corners[:len(corners)-1] {
			b := corners[i+1]
			n := int(math.Max(1, math.Round(a.DistanceTo(b)/spacing)))
			h := nav.Bearing(a, b)
			for k := 0; k < n; k++ {
				r := float64(k) / float64(n)
				path = append(path, nav.Pose{X: a.X + r*(b.X-a.X), Y: a.Y + r*(b.Y-a.Y), Heading: h})
			}
		}
		last := corners[len(corners)-1]
		last.Heading = math.Pi
		return append(path, last)
	},
}

func sample(f func(s float64) (float64, float64), length, spacing float64) nav.Path {
	n := int(math.Max(1, math.Ceil(length/spacing)))
	path := make(nav.Path, n+1)
	for i := 0; i <= n; i++ {
		x, y := f(length * float64(i) / float64(n))
		path[i] = nav.Pose{X: x, Y: y}
	}
	assignHeadings(path)
	return path
}

// thin drops waypoints closer than spacing to the last kept one.
func thin(path nav.Path, spacing float64) nav.Path {
	if len(path) < 2 {
		return path
	}
	out := nav.Path{path[0]}
	for _, p := range path[1 : len(path)-1] {
		if out[len(out)-1].DistanceTo(p) >= spacing {
			out = append(out, p)
		}
	}
	out = append(out, path[len(path)-1])
	assignHeadings(out)
	return out
}

func assignHeadings(path nav.Path) {
	for i := range path {
		switch {
		case i+1 < len(path):
			path[i].Heading = nav.Bearing(path[i], path[i+1])
		case i > 0:
			path[i].Heading = path[i-1].Heading
		}
	}
}

var Presets = map[string]*Config{
	"cruise": {
		Controller: DefaultControllerConfig(),
		Sim:        SimConfig{Duration: 60, Integrator: "rk4", MaxLinear: 1.0, MaxAngular: 1.5, Fallback: FallbackPrevious},
		Path:       PathConfig{Preset: "s_curve", Scale: 5, Spacing: 0.1},
	},
	"lane_change": {
		Controller: withWeights(DefaultControllerConfig(), [3]float64{1, 4, 1}, [2]float64{1, 1}),
		Sim:        SimConfig{Duration: 30, Integrator: "rk4", MaxLinear: 0.8, MaxAngular: 1.0, Fallback: FallbackPrevious, Start: nav.Pose{Y: -0.5}},
		Path:       PathConfig{Preset: "straight", Scale: 10, Spacing: 0.1},
	},
	"loop": {
		Controller: DefaultControllerConfig(),
		Sim:        SimConfig{Duration: 90, Integrator: "rk4", MaxLinear: 0.6, MaxAngular: 1.5, Fallback: FallbackPrevious},
		Path:       PathConfig{Preset: "circle", Scale: 3, Spacing: 0.1},
	},
	"tight_square": {
		Controller: withWeights(DefaultControllerConfig(), [3]float64{2, 2, 4}, [2]float64{1, 0.5}),
		Sim:        SimConfig{Duration: 90, Integrator: "rk4", MaxLinear: 0.5, MaxAngular: 2.0, Fallback: FallbackZero},
		Path:       PathConfig{Preset: "square", Scale: 4, Spacing: 0.1},
	},
	"eight": {
		Controller: DefaultControllerConfig(),
		Sim:        SimConfig{Duration: 120, Integrator: "rk4", MaxLinear: 0.6, MaxAngular: 2.0, Fallback: FallbackPrevious},
		Path:       PathConfig{Preset: "figure_eight", Scale: 4, Spacing: 0.1},
	},
}

func withWeights(c ControllerConfig, q [3]float64, r [2]float64) ControllerConfig {
	c.Q, c.R = q, r
	return c
}

// GetPreset returns a copy so callers may override fields freely.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *cfg
	c.Path.Waypoints = append([]nav.Pose(nil), cfg.Path.Waypoints...)
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListPaths() []string {
	names := make([]string, 0, len(PathGenerators))
	for name := range PathGenerators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
