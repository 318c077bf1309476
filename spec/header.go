package spec

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Compression identifies the algorithm (or absence of one) a byte block was compressed with.
type Compression uint8

const (
	CompressionUnknown Compression = iota
	CompressionNone
	CompressionGzip
	CompressionBrotli
	CompressionZstd
)

// TileType is an opaque tag describing tile payload content; the core never interprets it.
type TileType uint8

const (
	TileTypeUnknown TileType = iota
	TileTypePbf
	TileTypePng
	TileTypeJpeg
	TileTypeWebp
	TileTypeAvif
)

const (
	magicPlanar  = "PM"
	versionPlanar = 3

	magicCubic   = "S2"
	versionCubic = 1

	// HeaderLength is the fixed size, in bytes, of the planar header.
	HeaderLength = 127

	// CubicHeaderLength is the fixed size, in bytes, of the cubic header:
	// a 102-byte planar-compatible prefix plus five (root) and five (leaf)
	// offset/length pairs for faces 1..5.
	CubicHeaderLength = 262

	commonFieldsLength = 102
)

// Header is the 127-byte planar prelude.
type Header struct {
	RootOffset          uint64
	RootLength          uint64
	MetadataOffset      uint64
	MetadataLength      uint64
	LeafDirectoryOffset uint64
	LeafDirectoryLength uint64
	TileDataOffset      uint64
	TileDataLength      uint64
	AddressedTilesCount uint64
	TileEntriesCount    uint64
	TileContentsCount   uint64
	Clustered           bool
	InternalCompression Compression
	TileCompression     Compression
	TileType            TileType
	MinZoom             uint8
	MaxZoom             uint8
}

// FaceDirRef is a (offset, length) pair pointing at one face's root or leaf directory block.
type FaceDirRef struct {
	Offset uint64
	Length uint64
}

// CubicHeader is the 262-byte cubic prelude: a planar-compatible Header
// for face 0, plus root/leaf directory references for faces 1..5.
type CubicHeader struct {
	Header
	FaceRoots  [5]FaceDirRef
	FaceLeaves [5]FaceDirRef
}

// encodeCommon writes bytes 8..101 of buf (the 11 u64 fields plus the
// flag/tag/zoom bytes), shared verbatim by both header flavors.
func encodeCommon(buf []byte, h *Header) {
	binary.LittleEndian.PutUint64(buf[8:], h.RootOffset)
	binary.LittleEndian.PutUint64(buf[16:], h.RootLength)
	binary.LittleEndian.PutUint64(buf[24:], h.MetadataOffset)
	binary.LittleEndian.PutUint64(buf[32:], h.MetadataLength)
	binary.LittleEndian.PutUint64(buf[40:], h.LeafDirectoryOffset)
	binary.LittleEndian.PutUint64(buf[48:], h.LeafDirectoryLength)
	binary.LittleEndian.PutUint64(buf[56:], h.TileDataOffset)
	binary.LittleEndian.PutUint64(buf[64:], h.TileDataLength)
	binary.LittleEndian.PutUint64(buf[72:], h.AddressedTilesCount)
	binary.LittleEndian.PutUint64(buf[80:], h.TileEntriesCount)
	binary.LittleEndian.PutUint64(buf[88:], h.TileContentsCount)
	if h.Clustered {
		buf[96] = 1
	}
	buf[97] = byte(h.InternalCompression)
	buf[98] = byte(h.TileCompression)
	buf[99] = byte(h.TileType)
	buf[100] = h.MinZoom
	buf[101] = h.MaxZoom
}

func decodeCommon(buf []byte, h *Header) {
	h.RootOffset = binary.LittleEndian.Uint64(buf[8:])
	h.RootLength = binary.LittleEndian.Uint64(buf[16:])
	h.MetadataOffset = binary.LittleEndian.Uint64(buf[24:])
	h.MetadataLength = binary.LittleEndian.Uint64(buf[32:])
	h.LeafDirectoryOffset = binary.LittleEndian.Uint64(buf[40:])
	h.LeafDirectoryLength = binary.LittleEndian.Uint64(buf[48:])
	h.TileDataOffset = binary.LittleEndian.Uint64(buf[56:])
	h.TileDataLength = binary.LittleEndian.Uint64(buf[64:])
	h.AddressedTilesCount = binary.LittleEndian.Uint64(buf[72:])
	h.TileEntriesCount = binary.LittleEndian.Uint64(buf[80:])
	h.TileContentsCount = binary.LittleEndian.Uint64(buf[88:])
	h.Clustered = buf[96] != 0
	h.InternalCompression = Compression(buf[97])
	h.TileCompression = Compression(buf[98])
	h.TileType = TileType(buf[99])
	h.MinZoom = buf[100]
	h.MaxZoom = buf[101]
}

// ToBytes serializes the planar header to its exact 127-byte wire form.
func (h *Header) ToBytes() []byte {
	buf := make([]byte, HeaderLength)
	copy(buf[0:2], magicPlanar)
	buf[7] = versionPlanar
	encodeCommon(buf, h)
	return buf
}

// HeaderFromBytes decodes a planar header from its 127-byte wire form.
func HeaderFromBytes(buf []byte) (*Header, error) {
	if len(buf) < HeaderLength {
		return nil, errors.Wrap(ErrMalformedHeader, "buffer shorter than header length")
	}
	if string(buf[0:2]) != magicPlanar {
		return nil, errors.Wrap(ErrMalformedHeader, "unrecognized magic")
	}
	if buf[7] != versionPlanar {
		return nil, errors.Wrap(ErrMalformedHeader, "unsupported spec version")
	}
	h := &Header{}
	decodeCommon(buf, h)
	return h, nil
}

// ToBytes serializes the cubic header to its exact 262-byte wire form.
func (h *CubicHeader) ToBytes() []byte {
	buf := make([]byte, CubicHeaderLength)
	copy(buf[0:2], magicCubic)
	buf[7] = versionCubic
	encodeCommon(buf, &h.Header)

	off := commonFieldsLength
	for _, ref := range h.FaceRoots {
		binary.LittleEndian.PutUint64(buf[off:], ref.Offset)
		binary.LittleEndian.PutUint64(buf[off+8:], ref.Length)
		off += 16
	}
	for _, ref := range h.FaceLeaves {
		binary.LittleEndian.PutUint64(buf[off:], ref.Offset)
		binary.LittleEndian.PutUint64(buf[off+8:], ref.Length)
		off += 16
	}
	return buf
}

// CubicHeaderFromBytes decodes a cubic header from its 262-byte wire form.
func CubicHeaderFromBytes(buf []byte) (*CubicHeader, error) {
	if len(buf) < CubicHeaderLength {
		return nil, errors.Wrap(ErrMalformedHeader, "buffer shorter than cubic header length")
	}
	if string(buf[0:2]) != magicCubic {
		return nil, errors.Wrap(ErrMalformedHeader, "unrecognized magic")
	}
	if buf[7] != versionCubic {
		return nil, errors.Wrap(ErrMalformedHeader, "unsupported spec version")
	}
	h := &CubicHeader{}
	decodeCommon(buf, &h.Header)

	off := commonFieldsLength
	for i := range h.FaceRoots {
		h.FaceRoots[i] = FaceDirRef{
			Offset: binary.LittleEndian.Uint64(buf[off:]),
			Length: binary.LittleEndian.Uint64(buf[off+8:]),
		}
		off += 16
	}
	for i := range h.FaceLeaves {
		h.FaceLeaves[i] = FaceDirRef{
			Offset: binary.LittleEndian.Uint64(buf[off:]),
			Length: binary.LittleEndian.Uint64(buf[off+8:]),
		}
		off += 16
	}
	return h, nil
}
