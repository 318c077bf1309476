package spec

import (
	"bytes"
	"slices"
	"sort"
)

// Entry is a single directory record: either a tile payload run or,
// when RunLength == 0, a pointer at a leaf directory block.
type Entry struct {
	TileID    uint64
	Offset    uint64
	Length    uint32
	RunLength uint32
}

// SerializeDirectory writes entries in columnar form: count, delta-coded
// tileIDs, runLengths, lengths, then offset+1 with the 0 sentinel meaning
// "immediately after the previous entry".
func SerializeDirectory(entries []Entry) []byte {
	buffer := make([]byte, 0, len(entries)*4+8)

	buffer = AppendVarint(buffer, uint64(len(entries)))

	lastID := uint64(0)
	for _, entry := range entries {
		buffer = AppendVarint(buffer, entry.TileID-lastID)
		lastID = entry.TileID
	}

	for _, entry := range entries {
		buffer = AppendVarint(buffer, uint64(entry.RunLength))
	}

	for _, entry := range entries {
		buffer = AppendVarint(buffer, uint64(entry.Length))
	}

	nextOffset := uint64(0)
	for i, entry := range entries {
		if i > 0 && entry.Offset == nextOffset {
			buffer = AppendVarint(buffer, 0)
		} else {
			buffer = AppendVarint(buffer, entry.Offset+1)
		}
		nextOffset = entry.Offset + uint64(entry.Length)
	}

	return buffer
}

// DeserializeDirectory reverses SerializeDirectory.
func DeserializeDirectory(data []byte) ([]Entry, error) {
	r := bytes.NewReader(data)

	var err error
	readVarint := func() uint64 {
		if err != nil {
			return 0
		}
		var v uint64
		v, err = ReadVarint(r)
		return v
	}

	numEntries := readVarint()
	entries := make([]Entry, numEntries)

	lastID := uint64(0)
	for i := range entries {
		delta := readVarint()
		entries[i].TileID = lastID + delta
		lastID += delta
	}

	for i := range entries {
		entries[i].RunLength = uint32(readVarint())
	}

	for i := range entries {
		entries[i].Length = uint32(readVarint())
	}

	for i := range entries {
		value := readVarint()
		if value == 0 && i > 0 {
			entries[i].Offset = entries[i-1].Offset + uint64(entries[i-1].Length)
		} else {
			entries[i].Offset = value - 1
		}
	}

	return entries, err
}

// CompactEntries merges adjacent entries under the run-length law: entries
// with consecutive tileIDs and identical (offset, length) collapse into one
// with an incremented RunLength. entries must already be sorted by TileID.
func CompactEntries(entries []Entry) []Entry {
	if len(entries) == 0 {
		return entries
	}
	w := 0
	for r := 1; r < len(entries); r++ {
		if entries[r].Offset == entries[w].Offset &&
			entries[r].Length == entries[w].Length &&
			entries[r].TileID == entries[w].TileID+uint64(entries[w].RunLength) {
			entries[w].RunLength += entries[r].RunLength
		} else {
			w++
			entries[w] = entries[r]
		}
	}
	return entries[:w+1]
}

// FindEntry performs the findTile binary search described by the directory
// codec: on miss, the last candidate is inspected for a leaf pointer or a
// hit within its run before the lookup is declared not-found.
func FindEntry(entries []Entry, tileID uint64) (Entry, bool) {
	idx := sort.Search(len(entries), func(i int) bool {
		return entries[i].TileID > tileID
	})

	if idx == 0 {
		return Entry{}, false
	}

	entry := entries[idx-1]
	if entry.RunLength == 0 {
		return entry, true
	}
	if tileID-entry.TileID < uint64(entry.RunLength) {
		return entry, true
	}

	return Entry{}, false
}

// initialLeafSize is the starting chunk size for directory partitioning;
// it doubles on every attempt that still overflows the root budget.
const initialLeafSize = 4096

// PartitionDirectory builds a root directory (optionally with leaf
// fan-out) that fits targetRootSize once compressed. It first tries a
// single-level root; on overflow it chunks entries into leaves of
// initialLeafSize, doubling the chunk size each time the resulting root
// still overflows.
func PartitionDirectory(entries []Entry, compression Compression, targetRootSize int) (root, leaves []byte, err error) {
	rootData := SerializeDirectory(entries)
	root, err = Compress(rootData, compression)
	if err != nil {
		return nil, nil, err
	}
	if len(entries) == 0 || len(root) < targetRootSize {
		return root, nil, nil
	}

	leafSize := initialLeafSize
	for {
		var rootEntries []Entry
		var leafBlock []byte

		for chunk := range slices.Chunk(entries, leafSize) {
			leafData := SerializeDirectory(chunk)
			leafCompressed, cerr := Compress(leafData, compression)
			if cerr != nil {
				return nil, nil, cerr
			}
			rootEntries = append(rootEntries, Entry{
				TileID: chunk[0].TileID,
				Offset: uint64(len(leafBlock)),
				Length: uint32(len(leafCompressed)),
			})
			leafBlock = append(leafBlock, leafCompressed...)
		}

		rootData = SerializeDirectory(rootEntries)
		root, err = Compress(rootData, compression)
		if err != nil {
			return nil, nil, err
		}
		if len(root) < targetRootSize {
			return root, leafBlock, nil
		}

		leafSize *= 2
	}
}
