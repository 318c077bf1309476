// Package spec implements the wire-format codecs shared by both archive
// flavors: varint packing, Hilbert tile identifiers, directory encoding,
// header encoding, and the pluggable compression contract.
package spec

import "errors"

var (
	// ErrInvalidCoordinate is returned for a zoom/x/y outside the valid range.
	ErrInvalidCoordinate = errors.New("spec: invalid coordinate")

	// ErrVarintOverflow is returned when a varint decode runs past 10 bytes.
	ErrVarintOverflow = errors.New("spec: varint overflows a 64-bit integer")

	// ErrEmptyDirectory is returned when a non-root directory decodes to zero entries.
	ErrEmptyDirectory = errors.New("spec: directory decoded to zero entries")

	// ErrDepthExceeded is returned when a directory walk exceeds the maximum depth.
	ErrDepthExceeded = errors.New("spec: directory depth exceeded")

	// ErrUnsupportedCompression is returned for an unknown or unimplemented compression tag.
	ErrUnsupportedCompression = errors.New("spec: unsupported compression")

	// ErrMalformedHeader is returned for an unrecognized magic number or spec version.
	ErrMalformedHeader = errors.New("spec: malformed header")
)
