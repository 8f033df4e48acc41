package viz

import "github.com/charmbracelet/lipgloss"

// Theme colours the live view: the braille scene and the side panel accent.
type Theme struct {
	Name   string
	Scene  lipgloss.Color
	Accent lipgloss.Color
	Muted  lipgloss.Color
}

var (
	ThemeRetroGreen = Theme{Name: "retro", Scene: "#00ff00", Accent: "#88ff88", Muted: "#005500"}
	ThemeMinimal    = Theme{Name: "minimal", Scene: "#ffffff", Accent: "#0088ff", Muted: "#888888"}
	ThemeOcean      = Theme{Name: "ocean", Scene: "#00a8cc", Accent: "#ffd700", Muted: "#4488aa"}

	Themes = []Theme{ThemeRetroGreen, ThemeMinimal, ThemeOcean}
)

func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeRetroGreen
}

// next returns the theme after t in Themes, wrapping around.
func (t Theme) next() Theme {
	for i, th := range Themes {
		if th.Name == t.Name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
