package composite

import (
	"errors"
	"math"
	"testing"

	"zcomposite/pkg/volume"
)

// normVolume builds a single-slice normalized volume from per-channel
// planes for compositing tests.
func normVolume(t *testing.T, x, y int, channels ...[]float64) *volume.Volume {
	t.Helper()

	plane := x * y
	vol := &volume.Volume{
		Data: make([]float64, len(channels)*plane),
		Z:    1, C: len(channels), X: x, Y: y,
	}
	for c, ch := range channels {
		if len(ch) != plane {
			t.Fatalf("channel %d has %d samples, want %d", c, len(ch), plane)
		}
		copy(vol.Data[c*plane:(c+1)*plane], ch)
	}
	return vol
}

// TestRenderSingleChannel verifies that one visible red channel with
// intensity 0.5 produces the pixel (0.5, 0, 0).
func TestRenderSingleChannel(t *testing.T) {
	vol := normVolume(t, 1, 1, []float64{0.5})

	stack, err := Render(vol, []Color{{R: 1}}, []bool{true}, 1)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	r, g, b := stack.At(0, 0, 0)
	if r != 0.5 || g != 0 || b != 0 {
		t.Errorf("Expected pixel (0.5, 0, 0), got (%v, %v, %v)", r, g, b)
	}
}

// TestRenderClampsOverlap verifies that two overlapping red channels at
// 0.7 clip to 1.0 on the red plane.
func TestRenderClampsOverlap(t *testing.T) {
	vol := normVolume(t, 1, 1, []float64{0.7}, []float64{0.7})

	stack, err := Render(vol, []Color{{R: 1}, {R: 1}}, []bool{true, true}, 1)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	r, g, b := stack.At(0, 0, 0)
	if r != 1 || g != 0 || b != 0 {
		t.Errorf("Expected clamped pixel (1, 0, 0), got (%v, %v, %v)", r, g, b)
	}
}

// TestRenderInvisibleChannels verifies that hidden channels contribute
// nothing and an all-hidden volume composites to black.
func TestRenderInvisibleChannels(t *testing.T) {
	vol := normVolume(t, 2, 2,
		[]float64{1, 1, 1, 1},
		[]float64{0.5, 0.5, 0.5, 0.5},
	)
	colors := []Color{{R: 1}, {G: 1}}

	// Hiding one channel removes exactly its contribution
	stack, err := Render(vol, colors, []bool{true, false}, 1)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	r, g, _ := stack.At(0, 0, 0)
	if r != 1 || g != 0 {
		t.Errorf("Expected hidden channel to contribute nothing, got (r=%v, g=%v)", r, g)
	}

	// Hiding every channel yields all zeros
	stack, err = Render(vol, colors, []bool{false, false}, 1)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	for i, v := range stack.Data {
		if v != 0 {
			t.Fatalf("Expected all-zero stack with no visible channels, got %v at %d", v, i)
		}
	}
}

// TestRenderBounds verifies that any combination of colors and overlap
// stays within [0, 1].
func TestRenderBounds(t *testing.T) {
	vol := normVolume(t, 2, 2,
		[]float64{1, 0.9, 0.8, 0.7},
		[]float64{1, 0.9, 0.8, 0.7},
		[]float64{1, 0.9, 0.8, 0.7},
	)
	// Componentwise these sum well past 1
	colors := []Color{{R: 1, G: 1}, {R: 1, B: 1}, {R: 1, G: 1, B: 1}}

	stack, err := Render(vol, colors, []bool{true, true, true}, 1)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	for i, v := range stack.Data {
		if v < 0 || v > 1 {
			t.Errorf("Expected output in [0, 1], got %v at %d", v, i)
		}
	}
}

// TestRenderChannelOrderIndependent verifies that swapping channel order
// (with matching colors) changes nothing beyond rounding.
func TestRenderChannelOrderIndependent(t *testing.T) {
	chA := []float64{0.3, 0.6, 0.1, 0.9}
	chB := []float64{0.5, 0.2, 0.8, 0.4}
	colA := Color{R: 0.7, G: 0.1, B: 0.3}
	colB := Color{R: 0.2, G: 0.9, B: 0.5}

	ab, err := Render(normVolume(t, 2, 2, chA, chB), []Color{colA, colB}, []bool{true, true}, 1)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	ba, err := Render(normVolume(t, 2, 2, chB, chA), []Color{colB, colA}, []bool{true, true}, 1)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	const eps = 1e-12
	for i := range ab.Data {
		if math.Abs(ab.Data[i]-ba.Data[i]) > eps {
			t.Fatalf("Expected order-independent result, got %v vs %v at %d", ab.Data[i], ba.Data[i], i)
		}
	}
}

// TestRenderCountMismatch verifies the precondition checks on the color
// and visibility list lengths.
func TestRenderCountMismatch(t *testing.T) {
	vol := normVolume(t, 1, 1, []float64{0.5}, []float64{0.5})

	_, err := Render(vol, []Color{{R: 1}}, []bool{true, true}, 1)
	if !errors.Is(err, volume.ErrChannelCount) {
		t.Errorf("Expected ErrChannelCount for short colors, got %v", err)
	}

	_, err = Render(vol, []Color{{R: 1}, {G: 1}}, []bool{true}, 1)
	if !errors.Is(err, volume.ErrChannelCount) {
		t.Errorf("Expected ErrChannelCount for short visibility, got %v", err)
	}
}

// TestRenderDoesNotMutateInput verifies that compositing reads the
// normalized volume without touching it.
func TestRenderDoesNotMutateInput(t *testing.T) {
	vol := normVolume(t, 1, 2, []float64{0.25, 0.75})

	if _, err := Render(vol, []Color{{R: 1, G: 1}}, []bool{true}, 1); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if vol.Data[0] != 0.25 || vol.Data[1] != 0.75 {
		t.Errorf("Expected input unchanged, got %v", vol.Data)
	}
}

// TestRenderWorkerCountsAgree verifies that the per-slice worker split
// does not change the result.
func TestRenderWorkerCountsAgree(t *testing.T) {
	vol := &volume.Volume{Data: make([]float64, 5*2*3*3), Z: 5, C: 2, X: 3, Y: 3}
	for i := range vol.Data {
		vol.Data[i] = math.Abs(math.Sin(float64(i)))
	}
	colors := []Color{{R: 1, G: 0.5}, {B: 1}}
	visible := []bool{true, true}

	serial, err := Render(vol, colors, visible, 1)
	if err != nil {
		t.Fatalf("Render with 1 worker failed: %v", err)
	}
	parallel, err := Render(vol, colors, visible, 3)
	if err != nil {
		t.Fatalf("Render with 3 workers failed: %v", err)
	}

	for i := range serial.Data {
		if serial.Data[i] != parallel.Data[i] {
			t.Fatalf("Expected identical results, got %v vs %v at %d", serial.Data[i], parallel.Data[i], i)
		}
	}
}

// TestSliceData verifies slice extraction bounds and aliasing.
func TestSliceData(t *testing.T) {
	stack := &RGBStack{Data: make([]float64, 2*2*2*3), Z: 2, X: 2, Y: 2}
	for i := range stack.Data {
		stack.Data[i] = float64(i)
	}

	s := stack.SliceData(1)
	if len(s) != 2*2*3 {
		t.Fatalf("Expected %d samples, got %d", 2*2*3, len(s))
	}
	if s[0] != float64(2*2*3) {
		t.Errorf("Expected slice 1 to start at offset %d, got value %v", 2*2*3, s[0])
	}

	if stack.SliceData(-1) != nil || stack.SliceData(2) != nil {
		t.Error("Expected nil for out-of-range slice indices")
	}
}
