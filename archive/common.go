// Package archive implements the reader (C9) and writer (C10) pipelines
// over the planar and cubic tile archive formats defined by package spec.
package archive

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/nmatsuoka/go-quadtiles/cache"
	"github.com/nmatsuoka/go-quadtiles/spec"
)

// preludeSize is the fixed span, shared by both flavors, holding the
// header, root directory/directories, and metadata blob.
const preludeSize = 98304

// maxDirectoryDepth bounds a directory walk to root + three leaf levels.
const maxDirectoryDepth = 3

// Location is the absolute byte range of a tile payload inside an archive.
type Location struct {
	Offset uint64
	Length uint64
}

// HeaderInfo carries the archive-level fields a caller supplies at write
// time and a reader surfaces back. Only TileType is carried: the zoom range
// is recomputed by the writer from the tiles actually written, and
// compression is set with WithInternalCompression/WithTileCompression.
type HeaderInfo struct {
	TileType TileType
}

// TileType re-exports spec.TileType so callers don't need to import spec directly.
type TileType = spec.TileType

const (
	TileTypeUnknown = spec.TileTypeUnknown
	TileTypePbf     = spec.TileTypePbf
	TileTypePng     = spec.TileTypePng
	TileTypeJpeg    = spec.TileTypeJpeg
	TileTypeWebp    = spec.TileTypeWebp
	TileTypeAvif    = spec.TileTypeAvif
)

// Compression re-exports spec.Compression so callers don't need to import spec directly.
type Compression = spec.Compression

const (
	CompressionNone  = spec.CompressionNone
	CompressionGzip  = spec.CompressionGzip
	CompressionZstd  = spec.CompressionZstd
)

// Options collects the state functional options mutate.
type Options struct {
	Metadata            []byte
	HeaderInfo          HeaderInfo
	InternalCompression Compression
	TileCompression     Compression
	Logger              logrus.FieldLogger
	CacheCapacity       int
}

// Option configures a Reader or Writer at construction time.
type Option func(*Options)

// WithMetadata sets the opaque metadata blob a writer stores in the prelude.
func WithMetadata(metadata []byte) Option {
	return func(o *Options) { o.Metadata = metadata }
}

// WithHeaderInfo sets the caller-supplied header fields a writer records.
func WithHeaderInfo(h HeaderInfo) Option {
	return func(o *Options) { o.HeaderInfo = h }
}

// WithInternalCompression sets the compression applied to directories and metadata. Default: None.
func WithInternalCompression(c Compression) Option {
	return func(o *Options) { o.InternalCompression = c }
}

// WithTileCompression sets the compression applied to tile payloads. Default: None.
func WithTileCompression(c Compression) Option {
	return func(o *Options) { o.TileCompression = c }
}

// WithLogger sets the logger used for progress/debug messages. Default: discard.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithDirectoryCacheSize sets the reader's directory LRU cache capacity. Default: cache.DefaultCapacity.
func WithDirectoryCacheSize(n int) Option {
	return func(o *Options) { o.CacheCapacity = n }
}

func newOptions(opts ...Option) *Options {
	o := &Options{
		InternalCompression: spec.CompressionNone,
		TileCompression:     spec.CompressionNone,
		Logger:              discardLogger(),
		CacheCapacity:       cache.DefaultCapacity,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
