// Package pipeline runs resolved volumes through the normalize and
// composite stages and reports per-stage timings.
package pipeline

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"zcomposite/pkg/composite"
	"zcomposite/pkg/normalize"
	"zcomposite/pkg/volume"
)

// Stats records the scope and wall-clock cost of one render.
type Stats struct {
	// Channels and Slices describe the rendered volume
	Channels int
	Slices   int

	// NormalizeTime is the wall time of the normalization stage
	NormalizeTime time.Duration

	// CompositeTime is the wall time of the compositing stage
	CompositeTime time.Duration
}

// Result bundles the composited stack with the stats of producing it.
type Result struct {
	Stack *composite.RGBStack
	Stats Stats
}

// Runner executes renders. The zero value is usable; attach a Logger to
// get stage timings at debug level.
type Runner struct {
	Logger *log.Logger
}

// Run normalizes vol per channel and composites the visible channels
// into an RGB stack. Options may be nil for a fully-defaulted render.
// Channel-count mismatches abort before any numeric work.
func (r *Runner) Run(vol *volume.Volume, opts *Options) (*Result, error) {
	if vol == nil {
		return nil, fmt.Errorf("volume is nil")
	}
	if opts == nil {
		opts = &Options{}
	}
	if err := opts.ValidateAndSetDefaults(vol.C); err != nil {
		return nil, err
	}

	stats := Stats{Channels: vol.C, Slices: vol.Z}

	start := time.Now()
	norm, err := normalize.Apply(vol, opts.Windows, opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize volume: %w", err)
	}
	stats.NormalizeTime = time.Since(start)
	if r.Logger != nil {
		r.Logger.Debug("normalized volume", "channels", stats.Channels, "took", stats.NormalizeTime)
	}

	start = time.Now()
	stack, err := composite.Render(norm, opts.Colors, opts.Visible, opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to composite volume: %w", err)
	}
	stats.CompositeTime = time.Since(start)
	if r.Logger != nil {
		r.Logger.Debug("composited volume", "slices", stats.Slices, "took", stats.CompositeTime)
	}

	return &Result{Stack: stack, Stats: stats}, nil
}

// Render is a convenience wrapper around a zero-value Runner.
func Render(vol *volume.Volume, opts *Options) (*composite.RGBStack, error) {
	var r Runner
	res, err := r.Run(vol, opts)
	if err != nil {
		return nil, err
	}
	return res.Stack, nil
}
