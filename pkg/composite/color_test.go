package composite

import (
	"math"
	"testing"
)

// TestParseHexColor verifies parsing of full and shorthand hex colors.
func TestParseHexColor(t *testing.T) {
	const eps = 1e-12

	tests := []struct {
		in      string
		r, g, b float64
	}{
		{"#FF0000", 1, 0, 0},
		{"#00ff00", 0, 1, 0},
		{"0000FF", 0, 0, 1},
		{"#0F0", 0, 1, 0},
		{"#888888", 136.0 / 255.0, 136.0 / 255.0, 136.0 / 255.0},
		{"#FFA500", 1, 165.0 / 255.0, 0},
	}

	for _, tt := range tests {
		col, err := ParseHexColor(tt.in)
		if err != nil {
			t.Errorf("ParseHexColor(%q) failed: %v", tt.in, err)
			continue
		}
		if math.Abs(col.R-tt.r) > eps || math.Abs(col.G-tt.g) > eps || math.Abs(col.B-tt.b) > eps {
			t.Errorf("Expected %q to parse to (%v, %v, %v), got (%v, %v, %v)",
				tt.in, tt.r, tt.g, tt.b, col.R, col.G, col.B)
		}
	}
}

// TestParseHexColorRejectsInvalid verifies the error cases.
func TestParseHexColorRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "#", "#12345", "#1234567", "red", "#GG0000"} {
		if _, err := ParseHexColor(in); err == nil {
			t.Errorf("Expected ParseHexColor(%q) to fail", in)
		}
	}
}

// TestHexRoundTrip verifies that every palette entry survives a
// parse-format round trip.
func TestHexRoundTrip(t *testing.T) {
	for _, want := range DefaultHexPalette() {
		col, err := ParseHexColor(want)
		if err != nil {
			t.Fatalf("ParseHexColor(%q) failed: %v", want, err)
		}
		if got := col.Hex(); got != want {
			t.Errorf("Expected round trip of %q, got %q", want, got)
		}
	}
}

// TestDefaultPalette verifies the palette size, its leading primaries,
// and the cycling behavior past the last entry.
func TestDefaultPalette(t *testing.T) {
	palette := DefaultPalette()
	if len(palette) != 9 {
		t.Fatalf("Expected 9 palette entries, got %d", len(palette))
	}

	if palette[0] != (Color{R: 1}) {
		t.Errorf("Expected palette entry 0 to be red, got %+v", palette[0])
	}
	if palette[1] != (Color{G: 1}) {
		t.Errorf("Expected palette entry 1 to be green, got %+v", palette[1])
	}
	if palette[2] != (Color{B: 1}) {
		t.Errorf("Expected palette entry 2 to be blue, got %+v", palette[2])
	}

	if PaletteColor(9) != palette[0] {
		t.Error("Expected channel 9 to cycle back to the first palette entry")
	}
	if PaletteColor(10) != palette[1] {
		t.Error("Expected channel 10 to cycle to the second palette entry")
	}
}

// TestColorClamp verifies componentwise clamping.
func TestColorClamp(t *testing.T) {
	got := Color{R: 1.5, G: -0.2, B: 0.5}.Clamp()
	want := Color{R: 1, G: 0, B: 0.5}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}
