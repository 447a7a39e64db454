// Package volume defines the canonical multichannel volume model and the
// shape resolution step that produces it from a raw array.
package volume

import (
	"errors"
	"fmt"
)

// ErrUnsupportedShape is returned when a raw array cannot be interpreted
// as a (Z, C, X, Y) volume.
var ErrUnsupportedShape = errors.New("unsupported volume shape")

// ErrChannelCount is returned when a channel-indexed parameter list does
// not match the volume's channel axis.
var ErrChannelCount = errors.New("channel count mismatch")

// Volume is a multichannel image stack stored as a flat array in
// row-major (z, c, x, y) order. Axis meanings follow the microscopy
// convention: Z is depth, C is channel, X is row (height), Y is column
// (width).
//
// A Volume is treated as read-only once resolved; pipeline stages
// allocate fresh output volumes instead of mutating their input.
type Volume struct {
	// Data holds the samples as a 1D array in (z, c, x, y) order
	Data []float64

	// Z is the number of slices along the depth axis
	Z int

	// C is the number of channels
	C int

	// X is the slice height in pixels
	X int

	// Y is the slice width in pixels
	Y int
}

// Resolve interprets a raw flat array with the given shape as a
// canonical 4-D volume.
//
// A 4-D shape (Z, C, X, Y) is accepted as-is. A 5-D shape whose leading
// axis has size 1 is collapsed to the trailing four axes; the flat data
// layout is unchanged, so no copy is made. Every other shape fails with
// ErrUnsupportedShape.
func Resolve(data []float64, shape []int) (*Volume, error) {
	if len(shape) == 5 {
		if shape[0] != 1 {
			return nil, fmt.Errorf("%w: 5 dimensions with leading axis %d, expected 1", ErrUnsupportedShape, shape[0])
		}
		shape = shape[1:]
	}

	if len(shape) != 4 {
		return nil, fmt.Errorf("%w: got %d dimensions, expected 4 or a collapsible 5", ErrUnsupportedShape, len(shape))
	}

	for _, dim := range shape {
		if dim < 0 {
			return nil, fmt.Errorf("%w: negative dimension %d", ErrUnsupportedShape, dim)
		}
	}

	want := shape[0] * shape[1] * shape[2] * shape[3]
	if len(data) != want {
		return nil, fmt.Errorf("%w: data length %d does not match (%d, %d, %d, %d)",
			ErrUnsupportedShape, len(data), shape[0], shape[1], shape[2], shape[3])
	}

	return &Volume{
		Data: data,
		Z:    shape[0],
		C:    shape[1],
		X:    shape[2],
		Y:    shape[3],
	}, nil
}

// Shape returns the volume dimensions as (Z, C, X, Y).
func (v *Volume) Shape() [4]int {
	return [4]int{v.Z, v.C, v.X, v.Y}
}

// NumVoxels returns the total number of samples across all channels.
func (v *Volume) NumVoxels() int {
	return v.Z * v.C * v.X * v.Y
}

// PlaneSize returns the number of samples in one (z, c) plane.
func (v *Volume) PlaneSize() int {
	return v.X * v.Y
}

// Index returns the flat offset of sample (z, c, x, y).
func (v *Volume) Index(z, c, x, y int) int {
	return ((z*v.C+c)*v.X+x)*v.Y + y
}

// At returns the sample at (z, c, x, y).
func (v *Volume) At(z, c, x, y int) float64 {
	return v.Data[v.Index(z, c, x, y)]
}

// ChannelSamples copies every sample of channel c across the full
// (Z, X, Y) extent into a new slice. The copy is safe to sort or reuse.
func (v *Volume) ChannelSamples(c int) ([]float64, error) {
	if c < 0 || c >= v.C {
		return nil, fmt.Errorf("channel %d out of range [0, %d)", c, v.C)
	}

	plane := v.PlaneSize()
	samples := make([]float64, 0, v.Z*plane)
	for z := 0; z < v.Z; z++ {
		base := (z*v.C + c) * plane
		samples = append(samples, v.Data[base:base+plane]...)
	}

	return samples, nil
}

// Like returns a zero-filled volume with the same dimensions as v.
func Like(v *Volume) *Volume {
	return &Volume{
		Data: make([]float64, len(v.Data)),
		Z:    v.Z,
		C:    v.C,
		X:    v.X,
		Y:    v.Y,
	}
}
