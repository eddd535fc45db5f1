package output

import (
	"github.com/fatih/color"
)

// ColorScheme defines the colors used for different elements in the output
type ColorScheme struct {
	Title   *color.Color
	Label   *color.Color
	Value   *color.Color
	Rate    *color.Color
	Success *color.Color
	Warn    *color.Color
	Error   *color.Color
	Muted   *color.Color
}

// DefaultColorScheme returns the default color scheme
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Title:   color.New(color.FgCyan, color.Bold),
		Label:   color.New(color.FgWhite),
		Value:   color.New(color.FgCyan),
		Rate:    color.New(color.FgMagenta, color.Bold),
		Success: color.New(color.FgGreen),
		Warn:    color.New(color.FgYellow),
		Error:   color.New(color.FgRed, color.Bold),
		Muted:   color.New(color.Faint),
	}
}

// NoColorScheme returns a color scheme with all colors disabled
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	for _, c := range scheme.all() {
		c.DisableColor()
	}
	return scheme
}

// forceColors enables colors regardless of the global color.NoColor setting,
// which fatih/color derives from stdout only.
func (s *ColorScheme) forceColors() *ColorScheme {
	for _, c := range s.all() {
		c.EnableColor()
	}
	return s
}

func (s *ColorScheme) all() []*color.Color {
	return []*color.Color{s.Title, s.Label, s.Value, s.Rate, s.Success, s.Warn, s.Error, s.Muted}
}
