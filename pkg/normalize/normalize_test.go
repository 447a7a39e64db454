package normalize

import (
	"errors"
	"math"
	"testing"

	"zcomposite/pkg/volume"
)

// TestPercentile verifies the linear-interpolation percentile against
// values computed with numpy's default method.
func TestPercentile(t *testing.T) {
	sorted := []float64{0, 10, 20, 30}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 0},
		{10, 3},
		{25, 7.5},
		{50, 15},
		{75, 22.5},
		{100, 30},
	}

	const eps = 1e-12
	for _, tt := range tests {
		if got := percentile(sorted, tt.p); math.Abs(got-tt.want) > eps {
			t.Errorf("Expected percentile %v of %v to be %v, got %v", tt.p, sorted, tt.want, got)
		}
	}

	if got := percentile([]float64{7}, 50); got != 7 {
		t.Errorf("Expected single-sample percentile 7, got %v", got)
	}

	if got := percentile(nil, 50); !math.IsNaN(got) {
		t.Errorf("Expected NaN for empty input, got %v", got)
	}

	// Out-of-range percents saturate at the extreme order statistics
	if got := percentile(sorted, -5); got != 0 {
		t.Errorf("Expected below-range percent to return the minimum, got %v", got)
	}
	if got := percentile(sorted, 105); got != 30 {
		t.Errorf("Expected above-range percent to return the maximum, got %v", got)
	}
}

// TestApplyRescalesChannel verifies the core scenario: a channel spanning
// [0, 30] with a (0, 100) window maps to raw/30, while a constant channel
// with a (1, 99) window blanks to zero.
func TestApplyRescalesChannel(t *testing.T) {
	// Shape (2, 2, 1, 2): channel 0 holds 0, 10, 20, 30 over (z, x, y),
	// channel 1 holds the constant 5
	vol := &volume.Volume{
		Data: []float64{0, 10, 5, 5, 20, 30, 5, 5},
		Z:    2, C: 2, X: 1, Y: 2,
	}

	windows := []Window{{Low: 0, High: 100}, {Low: 1, High: 99}}
	out, err := Apply(vol, windows, 1)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	const eps = 1e-12
	wantCh0 := []float64{0, 10.0 / 30.0, 20.0 / 30.0, 1}
	got := []float64{out.At(0, 0, 0, 0), out.At(0, 0, 0, 1), out.At(1, 0, 0, 0), out.At(1, 0, 0, 1)}
	for i, want := range wantCh0 {
		if math.Abs(got[i]-want) > eps {
			t.Errorf("Expected channel 0 sample %d to be %v, got %v", i, want, got[i])
		}
	}

	for z := 0; z < 2; z++ {
		for y := 0; y < 2; y++ {
			if v := out.At(z, 1, 0, y); v != 0 {
				t.Errorf("Expected constant channel to blank to 0, got %v at (z=%d, y=%d)", v, z, y)
			}
		}
	}
}

// TestApplyDegenerateWindows verifies that inverted percentile pairs are
// absorbed by the blank-channel policy instead of raising an error.
func TestApplyDegenerateWindows(t *testing.T) {
	vol := &volume.Volume{
		Data: []float64{0, 10, 20, 30},
		Z:    1, C: 1, X: 2, Y: 2,
	}

	out, err := Apply(vol, []Window{{Low: 99, High: 1}}, 1)
	if err != nil {
		t.Fatalf("Apply failed on an inverted window: %v", err)
	}

	for i, v := range out.Data {
		if v != 0 {
			t.Errorf("Expected inverted window to blank the channel, got %v at %d", v, i)
		}
	}
}

// TestApplyBoundsAndMonotonic verifies that outputs stay within [0, 1]
// and preserve the ordering of the raw samples.
func TestApplyBoundsAndMonotonic(t *testing.T) {
	vol := &volume.Volume{Data: make([]float64, 100), Z: 1, C: 1, X: 10, Y: 10}
	for i := range vol.Data {
		vol.Data[i] = float64(i)
	}

	out, err := Apply(vol, []Window{{Low: 10, High: 90}}, 0)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	for i, v := range out.Data {
		if v < 0 || v > 1 {
			t.Errorf("Expected output in [0, 1], got %v at %d", v, i)
		}
		if i > 0 && out.Data[i] < out.Data[i-1] {
			t.Errorf("Expected monotonic output, got %v after %v at %d", out.Data[i], out.Data[i-1], i)
		}
	}

	// Samples below the 10th percentile clip to 0, above the 90th to 1
	if out.Data[0] != 0 || out.Data[9] != 0 {
		t.Error("Expected samples below the window to clip to 0")
	}
	if out.Data[90] != 1 || out.Data[99] != 1 {
		t.Error("Expected samples above the window to clip to 1")
	}
}

// TestApplyNaNFallsBackToZero verifies that NaN samples never reach the
// output.
func TestApplyNaNFallsBackToZero(t *testing.T) {
	vol := &volume.Volume{
		Data: []float64{0, math.NaN(), 20, 30},
		Z:    1, C: 1, X: 2, Y: 2,
	}

	out, err := Apply(vol, []Window{{Low: 0, High: 100}}, 1)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	for i, v := range out.Data {
		if math.IsNaN(v) {
			t.Fatalf("Expected no NaN in the output, got one at %d", i)
		}
		if v < 0 || v > 1 {
			t.Errorf("Expected output in [0, 1], got %v at %d", v, i)
		}
	}
}

// TestApplyChannelCountMismatch verifies the precondition check on the
// window list length.
func TestApplyChannelCountMismatch(t *testing.T) {
	vol := &volume.Volume{Data: make([]float64, 8), Z: 2, C: 2, X: 1, Y: 2}

	_, err := Apply(vol, []Window{{Low: 1, High: 99}}, 1)
	if err == nil {
		t.Fatal("Expected an error for a window count mismatch")
	}
	if !errors.Is(err, volume.ErrChannelCount) {
		t.Errorf("Expected ErrChannelCount, got %v", err)
	}
}

// TestApplyDoesNotMutateInput verifies that normalization allocates a
// fresh output volume.
func TestApplyDoesNotMutateInput(t *testing.T) {
	vol := &volume.Volume{
		Data: []float64{0, 10, 20, 30},
		Z:    1, C: 1, X: 2, Y: 2,
	}

	if _, err := Apply(vol, []Window{{Low: 0, High: 100}}, 1); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	want := []float64{0, 10, 20, 30}
	for i, v := range want {
		if vol.Data[i] != v {
			t.Errorf("Expected input sample %d to stay %v, got %v", i, v, vol.Data[i])
		}
	}
}

// TestApplyWorkerCountsAgree verifies that the worker split does not
// change the result.
func TestApplyWorkerCountsAgree(t *testing.T) {
	vol := &volume.Volume{Data: make([]float64, 4*3*4*4), Z: 4, C: 3, X: 4, Y: 4}
	for i := range vol.Data {
		vol.Data[i] = math.Sin(float64(i)) * 100
	}
	windows := []Window{{Low: 1, High: 99}, {Low: 5, High: 95}, {Low: 0, High: 100}}

	serial, err := Apply(vol, windows, 1)
	if err != nil {
		t.Fatalf("Apply with 1 worker failed: %v", err)
	}
	parallel, err := Apply(vol, windows, 4)
	if err != nil {
		t.Fatalf("Apply with 4 workers failed: %v", err)
	}

	for i := range serial.Data {
		if serial.Data[i] != parallel.Data[i] {
			t.Fatalf("Expected identical results, got %v vs %v at %d", serial.Data[i], parallel.Data[i], i)
		}
	}
}

// TestApplyEmptyVolume verifies that zero-size volumes normalize to an
// equally empty output without error.
func TestApplyEmptyVolume(t *testing.T) {
	vol := &volume.Volume{Data: nil, Z: 0, C: 2, X: 4, Y: 4}

	out, err := Apply(vol, []Window{{Low: 1, High: 99}, {Low: 1, High: 99}}, 1)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(out.Data) != 0 {
		t.Errorf("Expected empty output data, got %d samples", len(out.Data))
	}
}
