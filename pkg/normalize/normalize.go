// Package normalize rescales each channel of a volume to [0, 1] using a
// per-channel percentile window.
package normalize

import (
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"zcomposite/pkg/volume"
)

// Window is a percentile pair in percent units. Samples at or below the
// Low percentile map to 0, samples at or above the High percentile map
// to 1, and the range between is rescaled linearly.
type Window struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// DefaultWindow is the standard contrast window for fluorescence data:
// clip the darkest and brightest percent of samples.
var DefaultWindow = Window{Low: 1.0, High: 99.0}

// Apply normalizes every channel of vol independently using its window
// and returns a new volume of the same shape with values in [0, 1].
//
// For each channel the window percentiles of the channel's samples
// define the mapped range. A degenerate window, where the high
// percentile value does not exceed the low one (constant channels and
// inverted pairs included), blanks the whole channel to 0 rather than
// failing. NaN samples come out as 0.
//
// workers caps the goroutines used; 0 or less means one per CPU core.
// The input volume is never modified.
func Apply(vol *volume.Volume, windows []Window, workers int) (*volume.Volume, error) {
	if vol == nil {
		return nil, fmt.Errorf("volume is nil")
	}
	if len(windows) != vol.C {
		return nil, fmt.Errorf("%w: %d windows for %d channels", volume.ErrChannelCount, len(windows), vol.C)
	}

	out := volume.Like(vol)
	if vol.C == 0 || len(vol.Data) == 0 {
		return out, nil
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > vol.C {
		workers = vol.C
	}

	// Channels are independent, so each worker takes a strided subset
	// and writes to disjoint regions of the output.
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(first int) {
			defer wg.Done()
			for c := first; c < vol.C; c += workers {
				normalizeChannel(vol, out, c, windows[c])
			}
		}(w)
	}
	wg.Wait()

	return out, nil
}

// normalizeChannel rescales one channel into out, which is zero-filled
// on entry.
func normalizeChannel(in, out *volume.Volume, c int, w Window) {
	plane := in.PlaneSize()

	samples := make([]float64, 0, in.Z*plane)
	for z := 0; z < in.Z; z++ {
		base := (z*in.C + c) * plane
		samples = append(samples, in.Data[base:base+plane]...)
	}
	sort.Float64s(samples)

	vmin := percentile(samples, w.Low)
	vmax := percentile(samples, w.High)

	// Degenerate or inverted window: leave the channel blank. The NaN
	// comparisons land here too, so an empty channel stays all zero.
	if !(vmax > vmin) {
		return
	}

	inv := 1 / (vmax - vmin)
	for z := 0; z < in.Z; z++ {
		base := (z*in.C + c) * plane
		for i := base; i < base+plane; i++ {
			out.Data[i] = clamp01((in.Data[i] - vmin) * inv)
		}
	}
}

// percentile returns the p-th percentile of sorted samples using linear
// interpolation between adjacent order statistics, matching the default
// numpy semantics: the rank position is p/100*(n-1) and the value is
// interpolated between the samples at the floor and ceiling ranks.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}

	pos := p / 100 * float64(n-1)
	if pos <= 0 {
		return sorted[0]
	}
	if pos >= float64(n-1) {
		return sorted[n-1]
	}

	lo := int(pos)
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// clamp01 bounds v to [0, 1]. NaN maps to 0 so it never reaches the
// output.
func clamp01(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
