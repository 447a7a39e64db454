// Package export serializes composited RGB stacks: single slices to
// 8-bit PNG, full stacks to directories or zip archives, and downscaled
// previews.
package export

import (
	"archive/zip"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
	xdraw "golang.org/x/image/draw"

	"zcomposite/pkg/composite"
)

// MIMEType is the content type of encoded slices.
const MIMEType = "image/png"

// ErrSliceOutOfRange is returned when a slice index does not exist in
// the stack.
var ErrSliceOutOfRange = errors.New("slice index out of range")

// SliceFilename returns the canonical download name for slice z,
// zero-padded to three digits.
func SliceFilename(z int) string {
	return fmt.Sprintf("z_%03d.png", z)
}

// ArchiveFilename is the canonical download name for a full-stack
// archive.
const ArchiveFilename = "slices.zip"

// SliceImage converts one composited slice to an 8-bit image. Samples
// are scaled with round(v*255) and clamped to [0, 255]; the image is
// fully opaque.
func SliceImage(stack *composite.RGBStack, z int) (*image.NRGBA, error) {
	if z < 0 || z >= stack.Z {
		return nil, fmt.Errorf("%w: z=%d with %d slices", ErrSliceOutOfRange, z, stack.Z)
	}

	// X is the row axis and Y the column axis, so the image is Y wide
	// and X tall.
	img := image.NewNRGBA(image.Rect(0, 0, stack.Y, stack.X))
	for row := 0; row < stack.X; row++ {
		for col := 0; col < stack.Y; col++ {
			i := stack.Index(z, row, col)
			img.SetNRGBA(col, row, color.NRGBA{
				R: quantize(stack.Data[i]),
				G: quantize(stack.Data[i+1]),
				B: quantize(stack.Data[i+2]),
				A: 255,
			})
		}
	}

	return img, nil
}

// quantize maps a [0, 1] sample to 8 bits with rounding.
func quantize(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v*255))))
}

// EncodeSlice writes slice z as a PNG stream.
func EncodeSlice(w io.Writer, stack *composite.RGBStack, z int) error {
	img, err := SliceImage(stack, z)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// SaveSlice writes slice z as a PNG file.
func SaveSlice(stack *composite.RGBStack, z int, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create slice file: %w", err)
	}
	defer file.Close()

	return EncodeSlice(file, stack, z)
}

// WriteSequence writes every slice of the stack into outputDir using the
// canonical slice filenames, creating the directory if needed.
func WriteSequence(stack *composite.RGBStack, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for z := 0; z < stack.Z; z++ {
		filename := filepath.Join(outputDir, SliceFilename(z))
		if err := SaveSlice(stack, z, filename); err != nil {
			return err
		}
	}

	return nil
}

// WriteArchive writes every slice of the stack into a zip archive with
// one PNG entry per slice.
func WriteArchive(w io.Writer, stack *composite.RGBStack) error {
	zw := zip.NewWriter(w)

	// PNG payloads are already deflate-compressed, so favor speed.
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestSpeed)
	})

	for z := 0; z < stack.Z; z++ {
		entry, err := zw.Create(SliceFilename(z))
		if err != nil {
			return fmt.Errorf("failed to create archive entry: %w", err)
		}
		if err := EncodeSlice(entry, stack, z); err != nil {
			return fmt.Errorf("failed to encode slice %d: %w", z, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

// PreviewImage converts slice z to an 8-bit image downscaled so its
// longest edge is at most maxEdge pixels. Slices already within the
// bound are returned at full size; maxEdge <= 0 disables scaling.
func PreviewImage(stack *composite.RGBStack, z, maxEdge int) (*image.NRGBA, error) {
	img, err := SliceImage(stack, z)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	long := b.Dx()
	if b.Dy() > long {
		long = b.Dy()
	}
	if maxEdge <= 0 || long <= maxEdge {
		return img, nil
	}

	scale := float64(maxEdge) / float64(long)
	w := int(float64(b.Dx())*scale + 0.5)
	h := int(float64(b.Dy())*scale + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)

	return dst, nil
}

// EncodePreview writes a downscaled slice z as a PNG stream.
func EncodePreview(w io.Writer, stack *composite.RGBStack, z, maxEdge int) error {
	img, err := PreviewImage(stack, z, maxEdge)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}
