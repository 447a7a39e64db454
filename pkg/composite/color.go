package composite

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an RGB triple with components in [0, 1].
type Color struct {
	R float64 `yaml:"r"`
	G float64 `yaml:"g"`
	B float64 `yaml:"b"`
}

// defaultHex is the built-in channel palette, assigned positionally and
// cycled when a volume has more channels than entries.
var defaultHex = []string{
	"#FF0000", // red
	"#00FF00", // green
	"#0000FF", // blue
	"#FFFF00", // yellow
	"#FF00FF", // magenta
	"#00FFFF", // cyan
	"#FFA500", // orange
	"#8000FF", // violet
	"#888888", // gray
}

// DefaultHexPalette returns the built-in palette as hex strings.
func DefaultHexPalette() []string {
	out := make([]string, len(defaultHex))
	copy(out, defaultHex)
	return out
}

// DefaultPalette returns the built-in palette as parsed colors.
func DefaultPalette() []Color {
	out := make([]Color, len(defaultHex))
	for i, h := range defaultHex {
		out[i], _ = ParseHexColor(h)
	}
	return out
}

// PaletteColor returns the default color for channel c, cycling the
// palette for volumes with more channels than palette entries.
func PaletteColor(c int) Color {
	col, _ := ParseHexColor(defaultHex[c%len(defaultHex)])
	return col
}

// ParseHexColor converts "#RRGGBB" or "#RGB" (case-insensitive, leading
// '#' optional) into a Color with components in [0, 1].
func ParseHexColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")

	switch len(hex) {
	case 3:
		// Shorthand: each digit doubles, so "f" means 0xFF
		expanded := make([]byte, 6)
		for i := 0; i < 3; i++ {
			expanded[2*i] = hex[i]
			expanded[2*i+1] = hex[i]
		}
		hex = string(expanded)
	case 6:
	default:
		return Color{}, fmt.Errorf("invalid hex color %q", s)
	}

	var comps [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(hex[2*i:2*i+2], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("invalid hex color %q", s)
		}
		comps[i] = float64(v) / 255.0
	}

	return Color{R: comps[0], G: comps[1], B: comps[2]}, nil
}

// Hex renders the color as "#RRGGBB" after clamping.
func (c Color) Hex() string {
	cc := c.Clamp()
	return fmt.Sprintf("#%02X%02X%02X",
		uint8(cc.R*255+0.5), uint8(cc.G*255+0.5), uint8(cc.B*255+0.5))
}

// Clamp bounds every component to [0, 1].
func (c Color) Clamp() Color {
	return Color{R: clamp01(c.R), G: clamp01(c.G), B: clamp01(c.B)}
}
