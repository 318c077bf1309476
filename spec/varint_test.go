package spec_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/nmatsuoka/go-quadtiles/spec"
)

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 16383, 16384, 839483929049384, math.MaxUint64}
	for _, v := range values {
		buf := spec.AppendVarint(nil, v)
		if len(buf) > 10 {
			t.Errorf("AppendVarint(%d) produced %d bytes, want <= 10", v, len(buf))
		}
		got, err := spec.ReadVarint(bytes.NewReader(buf))
		if err != nil {
			t.Fatalf("ReadVarint(%d) failed: %v", v, err)
		}
		if got != v {
			t.Errorf("round-trip(%d) = %d", v, got)
		}
	}
}

func TestVarintStream(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 16383, 16384, 839483929049384}
	want := []byte{0, 1, 127, 128, 1, 255, 127, 128, 128, 1, 168, 242, 138, 171, 153, 240, 190, 1}

	var buf []byte
	for _, v := range values {
		buf = spec.AppendVarint(buf, v)
	}
	if !bytes.Equal(buf, want) {
		t.Fatalf("varint stream = %v, want %v", buf, want)
	}

	r := bytes.NewReader(buf)
	for _, want := range values {
		got, err := spec.ReadVarint(r)
		if err != nil {
			t.Fatalf("ReadVarint failed: %v", err)
		}
		if got != want {
			t.Errorf("ReadVarint = %d, want %d", got, want)
		}
	}
}

func TestVarintOverflow(t *testing.T) {
	// 10 bytes, all continuation bits set except a final byte that
	// contributes more than the single bit a 64-bit value has room for.
	overflowing := bytes.Repeat([]byte{0xff}, 9)
	overflowing = append(overflowing, 0x02)

	if _, err := spec.ReadVarint(bytes.NewReader(overflowing)); err != spec.ErrVarintOverflow {
		t.Fatalf("ReadVarint(overflowing) error = %v, want ErrVarintOverflow", err)
	}
}
