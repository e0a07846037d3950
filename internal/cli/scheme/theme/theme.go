// Package theme holds the reader's colour palettes. Palettes are plain values;
// nothing here touches the terminal.
package theme

import (
	"fmt"
	"strconv"
	"strings"
)

// RGB is an opaque 8-bit colour.
type RGB struct {
	R, G, B int
}

// Palette is the set of colours the reader draws with.
type Palette struct {
	Name                string
	Background          RGB
	SecondaryBackground RGB
	Accent              RGB
	TextPrimary         RGB
	TextSecondary       RGB
}

var (
	Light = Palette{
		Name:                "light",
		Background:          MustHex("#F8F8F6"),
		SecondaryBackground: MustHex("#E8E8E3"),
		Accent:              MustHex("#8B7355"),
		TextPrimary:         MustHex("#2C2C2C"),
		TextSecondary:       MustHex("#666666"),
	}

	Dark = Palette{
		Name:                "dark",
		Background:          MustHex("#1A1A1A"),
		SecondaryBackground: MustHex("#2D2D2D"),
		Accent:              MustHex("#A0886B"),
		TextPrimary:         MustHex("#F5F5F5"),
		TextSecondary:       MustHex("#CCCCCC"),
	}
)

// ByName returns the palette called name, falling back to Light.
func ByName(name string) Palette {
	if strings.EqualFold(name, Dark.Name) {
		return Dark
	}
	return Light
}

// ParseHex reads "#RGB", "#RRGGBB" or "#AARRGGBB". Alpha is dropped.
func ParseHex(s string) (RGB, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid hex colour %q: %w", s, err)
	}

	switch len(hex) {
	case 3:
		return RGB{
			R: int(v>>8) * 17,
			G: int(v>>4&0xF) * 17,
			B: int(v&0xF) * 17,
		}, nil
	case 6, 8:
		return RGB{
			R: int(v >> 16 & 0xFF),
			G: int(v >> 8 & 0xFF),
			B: int(v & 0xFF),
		}, nil
	default:
		return RGB{}, fmt.Errorf("invalid hex colour %q: want 3, 6 or 8 digits", s)
	}
}

// MustHex is ParseHex for package-level literals.
func MustHex(s string) RGB {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex formats the colour as "#RRGGBB".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}
