package colours

import (
	"shortshelf/internal/cli/scheme/theme"

	"github.com/fatih/color"
)

// Color scheme for the CLI
var (
	Title   = color.New(color.Bold)
	Prompt  = color.New(color.FgGreen, color.Bold)
	Error   = color.New(color.FgRed, color.Bold)
	Success = color.New(color.FgGreen)
	Info    = color.New(color.FgBlue)
	Warning = color.New(color.FgYellow)
	Body    = color.New()
	Muted   = color.New(color.Faint)
	Heart   = color.New(color.FgRed)
)

func init() {
	Apply(theme.Light)
}

// Apply rebinds the palette-driven colours to p.
func Apply(p theme.Palette) {
	Title = rgb(p.Accent).Add(color.Bold)
	Body = rgb(p.TextPrimary)
	Muted = rgb(p.TextSecondary)
}

func rgb(c theme.RGB) *color.Color {
	return color.RGB(c.R, c.G, c.B)
}
