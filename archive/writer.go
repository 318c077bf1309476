package archive

import (
	"context"
	"io"
	"slices"

	"github.com/minio/sha256-simd"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/nmatsuoka/go-quadtiles/spec"
	"github.com/nmatsuoka/go-quadtiles/tile"
)

// Writer accepts tiles, deduplicates identical payloads by content hash,
// and emits a committed archive at Finalize. A Writer is single-owner and
// non-reusable: WriteTile after Finalize, or a second Finalize, is an error.
type Writer interface {
	io.Closer

	WriteTile(id tile.ID, data []byte) error
	Finalize() error
}

type faceState struct {
	entries    []spec.Entry
	lastTileID uint64
	hasLast    bool
	clustered  bool
}

type hashedLocation struct {
	offset uint64
	length uint32
}

type writer struct {
	logger logrus.FieldLogger
	sink   Sink
	cubic  bool

	internalCompression spec.Compression
	tileCompression      spec.Compression
	headerInfo            HeaderInfo
	metadata              []byte

	tileOffset uint64
	faces      [tile.NumFaces]*faceState
	hashes     map[[sha256.Size]byte]hashedLocation

	haveZoom bool
	minZoom  uint8
	maxZoom  uint8

	addressedTiles uint64
	contentsCount  uint64

	finalized bool
}

// NewFileWriter creates filePath and returns a Writer over it. cubic
// selects the six-face flavor; otherwise the planar (single-root) flavor is used.
func NewFileWriter(filePath string, cubic bool, opts ...Option) (Writer, error) {
	sink, err := NewFileSink(filePath)
	if err != nil {
		return nil, err
	}
	w, err := newWriter(sink, cubic, opts...)
	if err != nil {
		sink.Close()
		return nil, err
	}
	return w, nil
}

// NewWriter returns a Writer over an arbitrary Sink.
func NewWriter(sink Sink, cubic bool, opts ...Option) (Writer, error) {
	return newWriter(sink, cubic, opts...)
}

func newWriter(sink Sink, cubic bool, opts ...Option) (*writer, error) {
	o := newOptions(opts...)

	if _, err := sink.AppendSync(make([]byte, preludeSize)); err != nil {
		return nil, errors.Wrap(err, "archive: failed to reserve prelude")
	}

	numFaces := 1
	if cubic {
		numFaces = tile.NumFaces
	}

	w := &writer{
		logger:               o.Logger,
		sink:                 sink,
		cubic:                cubic,
		internalCompression:  o.InternalCompression,
		tileCompression:      o.TileCompression,
		headerInfo:           o.HeaderInfo,
		metadata:             o.Metadata,
		hashes:               make(map[[sha256.Size]byte]hashedLocation),
	}
	for i := 0; i < numFaces; i++ {
		w.faces[i] = &faceState{clustered: true}
	}
	return w, nil
}

func (w *writer) WriteTile(id tile.ID, data []byte) error {
	if w.finalized {
		return errors.New("archive: WriteTile called after Finalize")
	}
	if !w.cubic && id.Face != tile.FacePrimary {
		return errors.Wrap(spec.ErrInvalidCoordinate, "archive: planar archive only addresses face 0")
	}
	if w.cubic && !id.Face.Valid() {
		return spec.ErrInvalidCoordinate
	}
	if len(data) == 0 {
		return nil
	}

	tileID, err := spec.EncodeTileID(id.Z, id.X, id.Y)
	if err != nil {
		return err
	}

	compressed, err := spec.Compress(data, w.tileCompression)
	if err != nil {
		return err
	}

	digest := sha256.Sum256(compressed)
	fs := w.faces[id.Face]

	if loc, ok := w.hashes[digest]; ok {
		w.logger.WithField("face", id.Face).Debug("archive: dedup hit")
		if n := len(fs.entries); n > 0 {
			last := &fs.entries[n-1]
			if last.TileID+uint64(last.RunLength) == tileID && last.Offset == loc.offset && last.Length == loc.length {
				last.RunLength++
				w.afterAppend(fs, id.Z, tileID)
				return nil
			}
		}
		fs.entries = append(fs.entries, spec.Entry{TileID: tileID, Offset: loc.offset, Length: loc.length, RunLength: 1})
		w.afterAppend(fs, id.Z, tileID)
		return nil
	}

	offset := w.tileOffset
	if _, err := w.sink.Append(compressed); err != nil {
		return errors.Wrap(err, "archive: failed to append tile")
	}
	w.tileOffset += uint64(len(compressed))

	length := uint32(len(compressed))
	w.hashes[digest] = hashedLocation{offset: offset, length: length}
	w.contentsCount++

	fs.entries = append(fs.entries, spec.Entry{TileID: tileID, Offset: offset, Length: length, RunLength: 1})
	w.afterAppend(fs, id.Z, tileID)
	return nil
}

func (w *writer) afterAppend(fs *faceState, z uint32, tileID uint64) {
	w.addressedTiles++

	if fs.hasLast && tileID < fs.lastTileID {
		fs.clustered = false
	}
	fs.lastTileID = tileID
	fs.hasLast = true

	if !w.haveZoom {
		w.minZoom, w.maxZoom = uint8(z), uint8(z)
		w.haveZoom = true
		return
	}
	if uint8(z) < w.minZoom {
		w.minZoom = uint8(z)
	}
	if uint8(z) > w.maxZoom {
		w.maxZoom = uint8(z)
	}
}

func cmpEntry(a, b spec.Entry) int {
	switch {
	case a.TileID < b.TileID:
		return -1
	case a.TileID > b.TileID:
		return 1
	default:
		return 0
	}
}

func (w *writer) Finalize() error {
	if w.finalized {
		return errors.New("archive: Finalize called twice")
	}
	w.finalized = true

	numFaces := 1
	if w.cubic {
		numFaces = tile.NumFaces
	}

	w.logger.Debug("archive: sort and compact")
	for i := 0; i < numFaces; i++ {
		fs := w.faces[i]
		slices.SortFunc(fs.entries, cmpEntry)
		fs.entries = spec.CompactEntries(fs.entries)
	}

	w.logger.Debug("archive: encode metadata")
	metadata, err := spec.Compress(w.metadata, w.internalCompression)
	if err != nil {
		return err
	}

	if w.cubic {
		return w.commitCubic(metadata)
	}
	return w.commitPlanar(metadata)
}

func (w *writer) commitPlanar(metadata []byte) error {
	fs := w.faces[tile.FacePrimary]
	targetRoot := int(preludeSize) - spec.HeaderLength - len(metadata)

	root, leaves, err := spec.PartitionDirectory(fs.entries, w.internalCompression, targetRoot)
	if err != nil {
		return err
	}

	leavesRelOffset := w.tileOffset
	if _, err := w.sink.Append(leaves); err != nil {
		return errors.Wrap(err, "archive: failed to append leaf directory")
	}
	w.tileOffset += uint64(len(leaves))

	header := &spec.Header{
		RootOffset:          spec.HeaderLength,
		RootLength:          uint64(len(root)),
		MetadataOffset:       uint64(spec.HeaderLength) + uint64(len(root)),
		MetadataLength:       uint64(len(metadata)),
		LeafDirectoryOffset:  preludeSize + leavesRelOffset,
		LeafDirectoryLength:  uint64(len(leaves)),
		TileDataOffset:       preludeSize,
		TileDataLength:       w.tileOffset,
		AddressedTilesCount:  w.addressedTiles,
		TileEntriesCount:     uint64(len(fs.entries)),
		TileContentsCount:    w.contentsCount,
		Clustered:            fs.clustered,
		InternalCompression:  w.internalCompression,
		TileCompression:      w.tileCompression,
		TileType:              w.headerInfo.TileType,
		MinZoom:               w.minZoom,
		MaxZoom:               w.maxZoom,
	}

	w.logger.Debug("archive: patch prelude")
	if err := w.sink.WriteAt(root, header.RootOffset); err != nil {
		return err
	}
	if err := w.sink.WriteAt(metadata, header.MetadataOffset); err != nil {
		return err
	}
	if err := w.sink.WriteAt(header.ToBytes(), 0); err != nil {
		return err
	}
	return nil
}

type partitionResult struct {
	root, leaves []byte
}

func (w *writer) commitCubic(metadata []byte) error {
	targetRoot := int(preludeSize) - spec.CubicHeaderLength - len(metadata)

	results := make([]partitionResult, tile.NumFaces)
	g, _ := errgroup.WithContext(context.Background())
	for i := 0; i < tile.NumFaces; i++ {
		i := i
		g.Go(func() error {
			root, leaves, err := spec.PartitionDirectory(w.faces[i].entries, w.internalCompression, targetRoot)
			if err != nil {
				return err
			}
			results[i] = partitionResult{root: root, leaves: leaves}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	rootOffsets := make([]uint64, tile.NumFaces)
	offset := uint64(spec.CubicHeaderLength)
	for i := 0; i < tile.NumFaces; i++ {
		rootOffsets[i] = offset
		offset += uint64(len(results[i].root))
	}
	metadataOffset := offset

	leafRelOffsets := make([]uint64, tile.NumFaces)
	for i := 0; i < tile.NumFaces; i++ {
		leafRelOffsets[i] = w.tileOffset
		if _, err := w.sink.Append(results[i].leaves); err != nil {
			return errors.Wrap(err, "archive: failed to append leaf directory")
		}
		w.tileOffset += uint64(len(results[i].leaves))
	}

	header := spec.Header{
		RootOffset:          rootOffsets[0],
		RootLength:          uint64(len(results[0].root)),
		MetadataOffset:       metadataOffset,
		MetadataLength:       uint64(len(metadata)),
		LeafDirectoryOffset:  preludeSize + leafRelOffsets[0],
		LeafDirectoryLength:  uint64(len(results[0].leaves)),
		TileDataOffset:       preludeSize,
		TileDataLength:       w.tileOffset,
		AddressedTilesCount:  w.addressedTiles,
		TileEntriesCount:     uint64(len(w.faces[0].entries)),
		TileContentsCount:    w.contentsCount,
		Clustered:            w.faces[0].clustered,
		InternalCompression:  w.internalCompression,
		TileCompression:      w.tileCompression,
		TileType:              w.headerInfo.TileType,
		MinZoom:               w.minZoom,
		MaxZoom:               w.maxZoom,
	}

	cubicHeader := spec.CubicHeader{Header: header}
	for i := 1; i < tile.NumFaces; i++ {
		cubicHeader.FaceRoots[i-1] = spec.FaceDirRef{Offset: rootOffsets[i], Length: uint64(len(results[i].root))}
		cubicHeader.FaceLeaves[i-1] = spec.FaceDirRef{Offset: preludeSize + leafRelOffsets[i], Length: uint64(len(results[i].leaves))}
	}

	w.logger.Debug("archive: patch prelude")
	for i := 0; i < tile.NumFaces; i++ {
		if err := w.sink.WriteAt(results[i].root, rootOffsets[i]); err != nil {
			return err
		}
	}
	if err := w.sink.WriteAt(metadata, metadataOffset); err != nil {
		return err
	}
	if err := w.sink.WriteAt(cubicHeader.ToBytes(), 0); err != nil {
		return err
	}
	return nil
}

func (w *writer) Close() error {
	if closer, ok := w.sink.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
