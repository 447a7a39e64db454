// Package ingest loads volumes from NumPy .npy array files. Decoding is
// delegated to npyio; this package only dispatches on the dtype,
// converts samples to float64, and hands the shape to the resolver.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sbinet/npyio"

	"zcomposite/pkg/volume"
)

// ErrFortranOrder is returned for column-major array files. Exports from
// the usual Python tooling are row-major, and the volume layout assumes
// that.
var ErrFortranOrder = errors.New("fortran-ordered arrays are not supported")

// ErrUnsupportedDType is returned for array dtypes without a float64
// conversion, such as complex or structured types.
var ErrUnsupportedDType = errors.New("unsupported array dtype")

// Read decodes a .npy stream into a resolved volume. The array must be
// row-major with an integer or floating-point dtype and a shape the
// resolver accepts.
func Read(r io.Reader) (*volume.Volume, error) {
	rd, err := npyio.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read npy header: %w", err)
	}
	if rd.Header.Descr.Fortran {
		return nil, ErrFortranOrder
	}

	shape := append([]int(nil), rd.Header.Descr.Shape...)

	data, err := decode(rd)
	if err != nil {
		return nil, err
	}

	return volume.Resolve(data, shape)
}

// Load decodes a .npy file into a resolved volume.
func Load(path string) (*volume.Volume, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open volume file: %w", err)
	}
	defer file.Close()

	vol, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return vol, nil
}

// decode reads the array payload as its native dtype and converts it to
// float64.
func decode(rd *npyio.Reader) ([]float64, error) {
	// Strip the byte-order prefix; npyio honors it during the read
	dtype := strings.TrimLeft(rd.Header.Descr.Type, "<>|=")

	switch dtype {
	case "u1":
		return readAs[uint8](rd)
	case "u2":
		return readAs[uint16](rd)
	case "u4":
		return readAs[uint32](rd)
	case "u8":
		return readAs[uint64](rd)
	case "i1":
		return readAs[int8](rd)
	case "i2":
		return readAs[int16](rd)
	case "i4":
		return readAs[int32](rd)
	case "i8":
		return readAs[int64](rd)
	case "f4":
		return readAs[float32](rd)
	case "f8":
		var data []float64
		if err := rd.Read(&data); err != nil {
			return nil, fmt.Errorf("failed to read npy data: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDType, rd.Header.Descr.Type)
	}
}

// readAs reads the payload as element type T and widens it to float64.
func readAs[T uint8 | uint16 | uint32 | uint64 | int8 | int16 | int32 | int64 | float32](rd *npyio.Reader) ([]float64, error) {
	var raw []T
	if err := rd.Read(&raw); err != nil {
		return nil, fmt.Errorf("failed to read npy data: %w", err)
	}

	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = float64(v)
	}
	return out, nil
}
