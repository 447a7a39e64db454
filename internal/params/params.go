// Package params parses user-facing render parameters, shared by the
// CLI flags and the HTTP form fields: percentile windows, hex color
// lists, and hidden-channel lists.
package params

import (
	"fmt"
	"strconv"
	"strings"

	"zcomposite/pkg/composite"
	"zcomposite/pkg/normalize"
)

// ParseWindows parses "lo:hi[,lo:hi...]" into percentile windows. Each
// bound must be a number in [0, 100]. An empty string yields nil.
func ParseWindows(s string) ([]normalize.Window, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	windows := make([]normalize.Window, len(parts))
	for i, part := range parts {
		lohi := strings.Split(strings.TrimSpace(part), ":")
		if len(lohi) != 2 {
			return nil, fmt.Errorf("invalid window %q, expected lo:hi", part)
		}

		lo, err := strconv.ParseFloat(strings.TrimSpace(lohi[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid window bound %q", lohi[0])
		}
		hi, err := strconv.ParseFloat(strings.TrimSpace(lohi[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid window bound %q", lohi[1])
		}
		if lo < 0 || lo > 100 || hi < 0 || hi > 100 {
			return nil, fmt.Errorf("window %q out of the [0, 100] percent range", part)
		}

		windows[i] = normalize.Window{Low: lo, High: hi}
	}

	return windows, nil
}

// ParseColors parses a comma-separated hex color list. An empty string
// yields nil.
func ParseColors(s string) ([]composite.Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	colors := make([]composite.Color, len(parts))
	for i, part := range parts {
		col, err := composite.ParseHexColor(part)
		if err != nil {
			return nil, err
		}
		colors[i] = col
	}

	return colors, nil
}

// ParseIndexList parses a comma-separated list of non-negative channel
// indices. An empty string yields nil.
func ParseIndexList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	indices := make([]int, len(parts))
	for i, part := range parts {
		idx, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("invalid channel index %q", part)
		}
		indices[i] = idx
	}

	return indices, nil
}

// WindowsForChannels sizes a parsed window list to the channel count: a
// single window broadcasts to every channel, a full list passes through,
// and nil stays nil so downstream defaults apply.
func WindowsForChannels(windows []normalize.Window, channels int) ([]normalize.Window, error) {
	switch {
	case windows == nil:
		return nil, nil
	case len(windows) == 1 && channels != 1:
		out := make([]normalize.Window, channels)
		for i := range out {
			out[i] = windows[0]
		}
		return out, nil
	case len(windows) == channels:
		return windows, nil
	default:
		return nil, fmt.Errorf("got %d windows for %d channels", len(windows), channels)
	}
}

// ColorsForChannels sizes a parsed color list to the channel count with
// the same rules as WindowsForChannels.
func ColorsForChannels(colors []composite.Color, channels int) ([]composite.Color, error) {
	switch {
	case colors == nil:
		return nil, nil
	case len(colors) == 1 && channels != 1:
		out := make([]composite.Color, channels)
		for i := range out {
			out[i] = colors[0]
		}
		return out, nil
	case len(colors) == channels:
		return colors, nil
	default:
		return nil, fmt.Errorf("got %d colors for %d channels", len(colors), channels)
	}
}

// PaletteForChannels assigns palette colors positionally to channels,
// cycling when channels outnumber palette entries. An empty palette
// falls back to the built-in one.
func PaletteForChannels(palette []composite.Color, channels int) []composite.Color {
	if len(palette) == 0 {
		palette = composite.DefaultPalette()
	}

	colors := make([]composite.Color, channels)
	for i := range colors {
		colors[i] = palette[i%len(palette)]
	}
	return colors
}

// Visibility builds per-channel visibility flags from a hidden-channel
// list. Nil hidden means every channel stays visible.
func Visibility(channels int, hidden []int) ([]bool, error) {
	visible := make([]bool, channels)
	for i := range visible {
		visible[i] = true
	}

	for _, idx := range hidden {
		if idx < 0 || idx >= channels {
			return nil, fmt.Errorf("hidden channel %d out of range [0, %d)", idx, channels)
		}
		visible[idx] = false
	}

	return visible, nil
}
