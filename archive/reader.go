package archive

import (
	"errors"
	"io"
	"iter"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nmatsuoka/go-quadtiles/cache"
	"github.com/nmatsuoka/go-quadtiles/spec"
	"github.com/nmatsuoka/go-quadtiles/tile"
)

// Reader walks the prelude and directories of a committed archive and
// resolves tile payloads. It is not safe for concurrent use: lookups that
// reach a leaf directory read and update its directory cache, a groupcache
// lru.Cache, without any locking.
type Reader interface {
	// Close releases any resources the Reader's RangeReader owns (no-op for in-memory readers).
	Close() error

	// IsCubic reports whether the archive is the six-face cubic flavor.
	IsCubic() bool

	// HeaderInfo returns the caller-facing fields recorded at write time.
	HeaderInfo() HeaderInfo
	ZoomRange() (min, max uint8)

	// ReadMetadata returns the decompressed metadata blob, or nil if none was written.
	ReadMetadata() ([]byte, error)

	// GetTile resolves a tile payload. found is false (with a nil error) if the tile is absent.
	GetTile(id tile.ID) (data []byte, found bool, err error)
	GetLocation(id tile.ID) (loc Location, found bool, err error)

	// FaceEntryCount walks face's directory tree and returns its true entry
	// count. Stats().TileEntriesCount (the header's TileEntriesCount field)
	// only reports this for face 0 even on a cubic archive; use this for the others.
	FaceEntryCount(face tile.Face) (uint64, error)

	// Stats reports the header-level counters and prelude byte ranges a
	// committed archive carries, for callers that need to observe them
	// directly rather than just resolve tile payloads.
	Stats() Stats

	// Tiles iterates every tile in the archive, across all faces for a cubic archive.
	Tiles() iter.Seq2[tile.ID, []byte]
	VisitTiles(visitor func(tile.ID, []byte) error) error
}

// Stats surfaces the counters and byte ranges recorded in an archive's
// header at write time.
type Stats struct {
	Clustered           bool
	AddressedTilesCount uint64
	TileEntriesCount    uint64
	TileContentsCount   uint64

	RootOffset uint64
	RootLength uint64

	MetadataOffset uint64
	MetadataLength uint64

	LeafDirectoryOffset uint64
	LeafDirectoryLength uint64

	TileDataOffset uint64
	TileDataLength uint64
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

type reader struct {
	rangeReader RangeReader
	closer      io.Closer
	cache       *cache.DirCache
	logger      logrus.FieldLogger

	header      *spec.Header
	cubicHeader *spec.CubicHeader
	cubic       bool

	roots [tile.NumFaces][]spec.Entry
}

// NewFileReader opens filePath and loads its prelude.
func NewFileReader(filePath string, opts ...Option) (Reader, error) {
	rr, err := NewFileRangeReader(filePath)
	if err != nil {
		return nil, err
	}
	r, err := newReader(rr, opts...)
	if err != nil {
		rr.Close()
		return nil, err
	}
	r.closer = rr
	return r, nil
}

// NewReader loads the prelude from an arbitrary RangeReader.
func NewReader(rr RangeReader, opts ...Option) (Reader, error) {
	return newReader(rr, opts...)
}

func newReader(rr RangeReader, opts ...Option) (*reader, error) {
	o := newOptions(opts...)

	prelude, err := rr.GetRange(0, preludeSize)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "archive: failed to fetch prelude")
	}

	var magic string
	if len(prelude) >= 2 {
		magic = string(prelude[:2])
	}

	r := &reader{
		rangeReader: rr,
		closer:      closerFunc(func() error { return nil }),
		cache:       cache.New(o.CacheCapacity),
		logger:      o.Logger,
	}

	switch magic {
	case "S2":
		ch, err := spec.CubicHeaderFromBytes(prelude)
		if err != nil {
			return nil, err
		}
		r.cubicHeader = ch
		r.header = &ch.Header
		r.cubic = true
	case "PM":
		h, err := spec.HeaderFromBytes(prelude)
		if err != nil {
			return nil, err
		}
		r.header = h
	default:
		return nil, spec.ErrMalformedHeader
	}

	root, err := decodeDirectoryBlock(prelude, r.header.RootOffset, r.header.RootLength, r.header.InternalCompression)
	if err != nil {
		return nil, err
	}
	r.roots[tile.FacePrimary] = root

	if r.cubic {
		for i, ref := range r.cubicHeader.FaceRoots {
			entries, err := decodeDirectoryBlock(prelude, ref.Offset, ref.Length, r.header.InternalCompression)
			if err != nil {
				return nil, err
			}
			r.roots[i+1] = entries
		}
	}

	r.logger.WithFields(logrus.Fields{"cubic": r.cubic}).Debug("archive: prelude loaded")
	return r, nil
}

func decodeDirectoryBlock(prelude []byte, offset, length uint64, compression spec.Compression) ([]spec.Entry, error) {
	if offset+length > uint64(len(prelude)) {
		return nil, pkgerrors.Wrap(spec.ErrMalformedHeader, "directory reference outside the prelude")
	}
	data, err := spec.Decompress(prelude[offset:offset+length], compression)
	if err != nil {
		return nil, err
	}
	return spec.DeserializeDirectory(data)
}

func (r *reader) Close() error {
	return r.closer.Close()
}

func (r *reader) IsCubic() bool {
	return r.cubic
}

func (r *reader) HeaderInfo() HeaderInfo {
	return HeaderInfo{TileType: r.header.TileType}
}

func (r *reader) ZoomRange() (uint8, uint8) {
	return r.header.MinZoom, r.header.MaxZoom
}

func (r *reader) Stats() Stats {
	h := r.header
	return Stats{
		Clustered:           h.Clustered,
		AddressedTilesCount: h.AddressedTilesCount,
		TileEntriesCount:    h.TileEntriesCount,
		TileContentsCount:   h.TileContentsCount,
		RootOffset:          h.RootOffset,
		RootLength:          h.RootLength,
		MetadataOffset:      h.MetadataOffset,
		MetadataLength:      h.MetadataLength,
		LeafDirectoryOffset: h.LeafDirectoryOffset,
		LeafDirectoryLength: h.LeafDirectoryLength,
		TileDataOffset:      h.TileDataOffset,
		TileDataLength:      h.TileDataLength,
	}
}

func (r *reader) ReadMetadata() ([]byte, error) {
	if r.header.MetadataLength == 0 {
		return nil, nil
	}
	data, err := r.rangeReader.GetRange(r.header.MetadataOffset, r.header.MetadataLength)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "archive: failed to fetch metadata")
	}
	return spec.Decompress(data, r.header.InternalCompression)
}

func (r *reader) leafDirectoryBase(face tile.Face) uint64 {
	if face == tile.FacePrimary {
		return r.header.LeafDirectoryOffset
	}
	return r.cubicHeader.FaceLeaves[face-1].Offset
}

func (r *reader) GetLocation(id tile.ID) (Location, bool, error) {
	if !id.Face.Valid() || (!r.cubic && id.Face != tile.FacePrimary) {
		return Location{}, false, spec.ErrInvalidCoordinate
	}
	if id.Z < uint32(r.header.MinZoom) || id.Z > uint32(r.header.MaxZoom) {
		return Location{}, false, nil
	}

	tileID, err := spec.EncodeTileID(id.Z, id.X, id.Y)
	if err != nil {
		return Location{}, false, err
	}

	leafBase := r.leafDirectoryBase(id.Face)
	entries := r.roots[id.Face]

	for level := 0; ; level++ {
		if level > maxDirectoryDepth {
			return Location{}, false, spec.ErrDepthExceeded
		}

		entry, found := spec.FindEntry(entries, tileID)
		if !found {
			return Location{}, false, nil
		}
		if entry.RunLength > 0 {
			return Location{
				Offset: r.header.TileDataOffset + entry.Offset,
				Length: uint64(entry.Length),
			}, true, nil
		}

		entries, err = r.loadDirectory(leafBase + entry.Offset, uint64(entry.Length))
		if err != nil {
			return Location{}, false, err
		}
	}
}

func (r *reader) loadDirectory(offset, length uint64) ([]spec.Entry, error) {
	if entries, ok := r.cache.Get(offset); ok {
		return entries, nil
	}
	data, err := r.rangeReader.GetRange(offset, length)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "archive: failed to fetch directory")
	}
	decompressed, err := spec.Decompress(data, r.header.InternalCompression)
	if err != nil {
		return nil, err
	}
	entries, err := spec.DeserializeDirectory(decompressed)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, spec.ErrEmptyDirectory
	}
	r.cache.Set(offset, entries)
	return entries, nil
}

func (r *reader) GetTile(id tile.ID) ([]byte, bool, error) {
	loc, found, err := r.GetLocation(id)
	if err != nil || !found {
		return nil, found, err
	}
	data, err := r.rangeReader.GetRange(loc.Offset, loc.Length)
	if err != nil {
		return nil, false, pkgerrors.Wrap(err, "archive: failed to fetch tile")
	}
	data, err = spec.Decompress(data, r.header.TileCompression)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (r *reader) FaceEntryCount(face tile.Face) (uint64, error) {
	if !face.Valid() || (!r.cubic && face != tile.FacePrimary) {
		return 0, spec.ErrInvalidCoordinate
	}
	return r.countEntries(r.roots[face], r.leafDirectoryBase(face))
}

func (r *reader) countEntries(entries []spec.Entry, leafBase uint64) (uint64, error) {
	var count uint64
	for _, entry := range entries {
		if entry.RunLength > 0 {
			count++
			continue
		}
		children, err := r.loadDirectory(leafBase+entry.Offset, uint64(entry.Length))
		if err != nil {
			return 0, err
		}
		sub, err := r.countEntries(children, leafBase)
		if err != nil {
			return 0, err
		}
		count += sub
	}
	return count, nil
}

var errVisitCancelled = errors.New("archive: visit cancelled")

func (r *reader) VisitTiles(visitor func(tile.ID, []byte) error) error {
	faces := []tile.Face{tile.FacePrimary}
	if r.cubic {
		faces = []tile.Face{0, 1, 2, 3, 4, 5}
	}
	for _, face := range faces {
		leafBase := r.leafDirectoryBase(face)
		if err := r.traverse(face, r.roots[face], leafBase, visitor); err != nil {
			return err
		}
	}
	return nil
}

func (r *reader) traverse(face tile.Face, entries []spec.Entry, leafBase uint64, visitor func(tile.ID, []byte) error) error {
	for _, entry := range entries {
		if entry.RunLength > 0 {
			for i := uint32(0); i < entry.RunLength; i++ {
				z, x, y, err := spec.DecodeTileID(entry.TileID + uint64(i))
				if err != nil {
					return err
				}
				data, err := r.rangeReader.GetRange(r.header.TileDataOffset+entry.Offset, uint64(entry.Length))
				if err != nil {
					return pkgerrors.Wrap(err, "archive: failed to fetch tile")
				}
				data, err = spec.Decompress(data, r.header.TileCompression)
				if err != nil {
					return err
				}
				if err := visitor(tile.ID{Face: face, X: x, Y: y, Z: z}, data); err != nil {
					return err
				}
			}
			continue
		}

		children, err := r.loadDirectory(leafBase+entry.Offset, uint64(entry.Length))
		if err != nil {
			return err
		}
		if err := r.traverse(face, children, leafBase, visitor); err != nil {
			return err
		}
	}
	return nil
}

func (r *reader) Tiles() iter.Seq2[tile.ID, []byte] {
	return func(yield func(tile.ID, []byte) bool) {
		err := r.VisitTiles(func(id tile.ID, data []byte) error {
			if !yield(id, data) {
				return errVisitCancelled
			}
			return nil
		})
		if err != nil && err != errVisitCancelled {
			panic(err)
		}
	}
}
