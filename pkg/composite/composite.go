// Package composite renders normalized multichannel volumes into
// per-slice RGB images by additive color blending of visible channels.
package composite

import (
	"fmt"
	"runtime"
	"sync"

	"zcomposite/pkg/volume"
)

// RGBStack holds one composited RGB image per z slice, stored as a flat
// array in (z, x, y, rgb) order with values in [0, 1].
type RGBStack struct {
	// Data holds the samples as a 1D array in (z, x, y, rgb) order
	Data []float64

	// Z is the number of slices
	Z int

	// X is the image height in pixels
	X int

	// Y is the image width in pixels
	Y int
}

// Index returns the flat offset of the red component of pixel (z, x, y);
// green and blue follow at the next two offsets.
func (s *RGBStack) Index(z, x, y int) int {
	return ((z*s.X+x)*s.Y + y) * 3
}

// At returns the RGB triple of pixel (z, x, y).
func (s *RGBStack) At(z, x, y int) (r, g, b float64) {
	i := s.Index(z, x, y)
	return s.Data[i], s.Data[i+1], s.Data[i+2]
}

// SliceData returns the flat (x, y, rgb) samples of slice z, or nil when
// z is out of range. The returned slice aliases the stack.
func (s *RGBStack) SliceData(z int) []float64 {
	if z < 0 || z >= s.Z {
		return nil
	}
	n := s.X * s.Y * 3
	return s.Data[z*n : (z+1)*n]
}

// Render composites the visible channels of a normalized volume into an
// RGB stack. Each visible channel adds its normalized intensity times
// its color to the slice, and the accumulated sums are clamped to
// [0, 1]. Invisible channels contribute nothing. Channel order does not
// affect the result beyond floating-point rounding.
//
// colors and visible must each have exactly one entry per channel.
// workers caps the goroutines used; 0 or less means one per CPU core.
// The input volume is never modified.
func Render(vol *volume.Volume, colors []Color, visible []bool, workers int) (*RGBStack, error) {
	if vol == nil {
		return nil, fmt.Errorf("volume is nil")
	}
	if len(colors) != vol.C {
		return nil, fmt.Errorf("%w: %d colors for %d channels", volume.ErrChannelCount, len(colors), vol.C)
	}
	if len(visible) != vol.C {
		return nil, fmt.Errorf("%w: %d visibility flags for %d channels", volume.ErrChannelCount, len(visible), vol.C)
	}

	out := &RGBStack{
		Data: make([]float64, vol.Z*vol.X*vol.Y*3),
		Z:    vol.Z,
		X:    vol.X,
		Y:    vol.Y,
	}
	if vol.Z == 0 || len(vol.Data) == 0 {
		return out, nil
	}

	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > vol.Z {
		workers = vol.Z
	}

	// Slices are independent, so each worker takes a strided subset and
	// writes to disjoint regions of the output.
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(first int) {
			defer wg.Done()
			for z := first; z < vol.Z; z += workers {
				renderSlice(vol, out, z, colors, visible)
			}
		}(w)
	}
	wg.Wait()

	return out, nil
}

// renderSlice accumulates every visible channel of slice z into out and
// clamps the result.
func renderSlice(vol *volume.Volume, out *RGBStack, z int, colors []Color, visible []bool) {
	plane := vol.PlaneSize()
	outBase := z * plane * 3

	for c := 0; c < vol.C; c++ {
		if !visible[c] {
			continue
		}
		col := colors[c]
		base := (z*vol.C + c) * plane
		for i := 0; i < plane; i++ {
			gray := vol.Data[base+i]
			out.Data[outBase+i*3] += gray * col.R
			out.Data[outBase+i*3+1] += gray * col.G
			out.Data[outBase+i*3+2] += gray * col.B
		}
	}

	// Overlapping channels can push a sum past 1; clip rather than
	// renormalize.
	for i := outBase; i < outBase+plane*3; i++ {
		out.Data[i] = clamp01(out.Data[i])
	}
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
