package xyz

import (
	"os"
	"path/filepath"

	"github.com/nmatsuoka/go-quadtiles/tile"
)

// Writer implements tile.Writer interface for tiles in XYZ format. Writing
// a non-primary face through a pattern with no "{face}" placeholder fails
// with ErrFaceNotAddressable rather than overwriting face 0's files.
type Writer struct {
	filePattern string
}

// NewWriter creates a new Writer for the given file pattern, e.g.
// "/home/user/tiles/{z}/{x}/{y}.png" for a planar directory, or
// "/home/user/tiles/{face}/{z}/{x}/{y}.pbf" for a cubic one.
func NewWriter(filePattern string) (*Writer, error) {
	if err := validatePattern(filePattern); err != nil {
		return nil, err
	}
	return &Writer{filePattern}, nil
}

func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	filePath, err := formatPattern(w.filePattern, tileID)
	if err != nil {
		return err
	}

	dirPath := filepath.Dir(filePath)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return err
	}

	return os.WriteFile(filePath, tileData, 0644)
}

func (w *Writer) Finalize() error {
	return nil
}
