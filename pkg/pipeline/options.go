package pipeline

import (
	"fmt"
	"strings"

	"zcomposite/pkg/composite"
	"zcomposite/pkg/normalize"
	"zcomposite/pkg/volume"
)

// Options control one render pass over a resolved volume. Zero-value
// options are valid: every unset field takes its default during
// validation.
type Options struct {
	// Windows holds one percentile pair per channel. Nil selects the
	// default window for every channel.
	Windows []normalize.Window

	// Colors holds one RGB color per channel. Nil assigns the built-in
	// palette positionally, cycling when channels outnumber entries.
	Colors []composite.Color

	// Visible holds one flag per channel. Nil shows every channel.
	Visible []bool

	// Workers caps the goroutines used per stage. 0 means one per CPU
	// core.
	Workers int

	validated bool
}

// ValidateAndSetDefaults checks the channel-indexed fields against the
// volume's channel count and fills unset fields with defaults. It is
// idempotent, so calling it again is a no-op.
func (o *Options) ValidateAndSetDefaults(channels int) error {
	if o.validated {
		return nil
	}

	switch {
	case o.Windows == nil:
		o.Windows = make([]normalize.Window, channels)
		for c := range o.Windows {
			o.Windows[c] = normalize.DefaultWindow
		}
	case len(o.Windows) != channels:
		return fmt.Errorf("%w: %d windows for %d channels", volume.ErrChannelCount, len(o.Windows), channels)
	}

	switch {
	case o.Colors == nil:
		o.Colors = make([]composite.Color, channels)
		for c := range o.Colors {
			o.Colors[c] = composite.PaletteColor(c)
		}
	case len(o.Colors) != channels:
		return fmt.Errorf("%w: %d colors for %d channels", volume.ErrChannelCount, len(o.Colors), channels)
	}

	switch {
	case o.Visible == nil:
		o.Visible = make([]bool, channels)
		for c := range o.Visible {
			o.Visible[c] = true
		}
	case len(o.Visible) != channels:
		return fmt.Errorf("%w: %d visibility flags for %d channels", volume.ErrChannelCount, len(o.Visible), channels)
	}

	o.validated = true
	return nil
}

// Fingerprint returns a deterministic encoding of everything that
// influences the rendered output. Worker count is excluded since it
// never changes the result.
func (o *Options) Fingerprint() string {
	var b strings.Builder

	for _, w := range o.Windows {
		fmt.Fprintf(&b, "w%g:%g;", w.Low, w.High)
	}
	for _, c := range o.Colors {
		fmt.Fprintf(&b, "c%g:%g:%g;", c.R, c.G, c.B)
	}
	b.WriteByte('v')
	for _, v := range o.Visible {
		if v {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}

	return b.String()
}
