package spec

import (
	"math/bits"

	"github.com/google/hilbert"
	"github.com/pkg/errors"
)

// MaxZoom is the highest zoom level a tile-ID can address: 4^26 still
// fits the 53-bit-safe integer range several hosts in this ecosystem rely on.
const MaxZoom = 26

// EncodeTileID maps (z, x, y) to the monotone Hilbert index tzAccum[z] + hilbert(z, x, y).
func EncodeTileID(z, x, y uint32) (uint64, error) {
	if err := validateCoordinate(z, x, y); err != nil {
		return 0, err
	}
	h, _ := hilbert.NewHilbert(1 << z)
	pos, _ := h.MapInverse(int(x), int(y))
	return uint64(pos) + zoomAccumulator(z), nil
}

// DecodeTileID reverses EncodeTileID.
func DecodeTileID(tileID uint64) (z, x, y uint32, err error) {
	zoom := (bits.Len64(3*tileID+1) - 1) / 2
	if zoom < 0 || zoom > MaxZoom {
		return 0, 0, 0, errors.Wrapf(ErrInvalidCoordinate, "tileID %d decodes to an out-of-range zoom", tileID)
	}
	z = uint32(zoom)
	pos := tileID - zoomAccumulator(z)
	h, _ := hilbert.NewHilbert(1 << z)
	px, py, _ := h.Map(int(pos))
	return z, uint32(px), uint32(py), nil
}

// zoomAccumulator returns Σ_{k<z} 4^k, the count of tiles strictly above zoom z.
func zoomAccumulator(z uint32) uint64 {
	return (uint64(1)<<(2*z) - 1) / 3
}

func validateCoordinate(z, x, y uint32) error {
	if z > MaxZoom {
		return errors.Wrapf(ErrInvalidCoordinate, "zoom %d exceeds max %d", z, MaxZoom)
	}
	if x >= uint32(1)<<z || y >= uint32(1)<<z {
		return errors.Wrapf(ErrInvalidCoordinate, "x=%d y=%d out of range for zoom %d", x, y, z)
	}
	return nil
}
