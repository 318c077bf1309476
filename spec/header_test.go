package spec_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/nmatsuoka/go-quadtiles/spec"
)

func TestHeaderFromBytesErrors(t *testing.T) {
	buf := []byte("foobar")
	_, err := spec.HeaderFromBytes(buf)
	require.Truef(t, errors.Is(err, spec.ErrMalformedHeader), "%v", err)
}

func TestHeaderRoundTrip(t *testing.T) {
	h := &spec.Header{
		RootOffset:          127,
		RootLength:          5,
		MetadataOffset:       132,
		MetadataLength:       13,
		LeafDirectoryOffset:  98304,
		LeafDirectoryLength:  0,
		TileDataOffset:       98304,
		TileDataLength:       11,
		AddressedTilesCount:  1,
		TileEntriesCount:     1,
		TileContentsCount:    1,
		Clustered:            true,
		InternalCompression:  spec.CompressionNone,
		TileCompression:      spec.CompressionNone,
		TileType:              spec.TileTypePbf,
		MinZoom:               0,
		MaxZoom:               0,
	}

	buf := h.ToBytes()
	if len(buf) != spec.HeaderLength {
		t.Fatalf("ToBytes() length = %d, want %d", len(buf), spec.HeaderLength)
	}
	if string(buf[0:2]) != "PM" {
		t.Errorf("magic = %q, want PM", buf[0:2])
	}
	if buf[7] != 3 {
		t.Errorf("spec version = %d, want 3", buf[7])
	}

	got, err := spec.HeaderFromBytes(buf)
	if err != nil {
		t.Fatalf("HeaderFromBytes failed: %v", err)
	}
	if !cmp.Equal(got, h) {
		t.Errorf("round-trip mismatch: %s", cmp.Diff(h, got))
	}
}

func TestHeaderFromBytesRejectsBadMagic(t *testing.T) {
	buf := make([]byte, spec.HeaderLength)
	copy(buf, "XX")
	if _, err := spec.HeaderFromBytes(buf); err == nil {
		t.Fatal("HeaderFromBytes accepted a bad magic")
	}
}

func TestCubicHeaderRoundTrip(t *testing.T) {
	h := &spec.CubicHeader{
		Header: spec.Header{
			RootOffset:          262,
			RootLength:          5,
			TileDataOffset:       98304,
			TileDataLength:       11,
			AddressedTilesCount:  1,
			TileEntriesCount:     1,
			TileContentsCount:    1,
			Clustered:            true,
			InternalCompression:  spec.CompressionNone,
			TileCompression:      spec.CompressionNone,
			TileType:              spec.TileTypePbf,
		},
	}
	for i := range h.FaceRoots {
		h.FaceRoots[i] = spec.FaceDirRef{Offset: 267 + uint64(i)*5, Length: 5}
		h.FaceLeaves[i] = spec.FaceDirRef{Offset: 98304, Length: 0}
	}

	buf := h.ToBytes()
	if len(buf) != spec.CubicHeaderLength {
		t.Fatalf("ToBytes() length = %d, want %d", len(buf), spec.CubicHeaderLength)
	}
	if string(buf[0:2]) != "S2" {
		t.Errorf("magic = %q, want S2", buf[0:2])
	}
	if buf[7] != 1 {
		t.Errorf("spec version = %d, want 1", buf[7])
	}

	got, err := spec.CubicHeaderFromBytes(buf)
	if err != nil {
		t.Fatalf("CubicHeaderFromBytes failed: %v", err)
	}
	if !cmp.Equal(got, h) {
		t.Errorf("round-trip mismatch: %s", cmp.Diff(h, got))
	}
}
