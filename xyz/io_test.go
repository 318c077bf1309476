package xyz_test

import (
	"errors"
	"maps"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nmatsuoka/go-quadtiles/tile"
	"github.com/nmatsuoka/go-quadtiles/xyz"
)

func TestWriterReader(t *testing.T) {
	rootDir := t.TempDir()
	pattern := filepath.Join(rootDir, "{z}", "{x}", "{y}.png")

	tiles := map[tile.ID][]byte{
		{X: 0, Y: 0, Z: 0}: []byte("tile000"),
		{X: 1, Y: 1, Z: 1}: []byte("tile111"),
		{X: 0, Y: 0, Z: 6}: []byte("tile006"),
		{X: 6, Y: 6, Z: 6}: []byte("tile666"),
	}

	writer, err := xyz.NewWriter(pattern)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	for tileID, tileData := range tiles {
		if err := writer.WriteTile(tileID, tileData); err != nil {
			t.Errorf("WriteTile(%v) failed: %v", tileID, err)
		}
	}

	if err := writer.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	reader, err := xyz.NewReader(pattern)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	if got, want := maps.Collect(tile.IterTiles(reader)), tiles; !cmp.Equal(got, want) {
		t.Errorf("VisitTiles data mismatch")
	}

	for tileID, tileData := range tiles {
		data, err := reader.ReadTile(tileID)
		if err != nil {
			t.Errorf("ReadTile(%v) failed: %v", tileID, err)
			continue
		}
		if !cmp.Equal(data, tileData) {
			t.Errorf("ReadTile data mismatch for %v", tileID)
		}
	}

	tileData, err := reader.ReadTile(tile.ID{X: 9, Y: 9, Z: 9})
	if err != nil {
		t.Errorf("ReadTile(missing tile) failed: %v", err)
	}
	if len(tileData) != 0 {
		t.Errorf("ReadTile(missing tile) expected empty tile, got: %v bytes", len(tileData))
	}
}

func TestWriterReaderCubicFaces(t *testing.T) {
	rootDir := t.TempDir()
	pattern := filepath.Join(rootDir, "{face}", "{z}", "{x}", "{y}.pbf")

	tiles := map[tile.ID][]byte{
		{Face: tile.FacePrimary, X: 0, Y: 0, Z: 0}: []byte("face0"),
		{Face: tile.Face3, X: 0, Y: 0, Z: 0}:       []byte("face3"),
		{Face: tile.Face5, X: 1, Y: 1, Z: 1}:       []byte("face5"),
	}

	writer, err := xyz.NewWriter(pattern)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	for tileID, tileData := range tiles {
		if err := writer.WriteTile(tileID, tileData); err != nil {
			t.Errorf("WriteTile(%v) failed: %v", tileID, err)
		}
	}

	reader, err := xyz.NewReader(pattern)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	if got, want := maps.Collect(tile.IterTiles(reader)), tiles; !cmp.Equal(got, want) {
		t.Errorf("VisitTiles data mismatch")
	}

	face3Only := maps.Collect(tile.IterFace(reader, tile.Face3))
	if len(face3Only) != 1 {
		t.Fatalf("IterFace(Face3) returned %d tiles, want 1", len(face3Only))
	}
	if got := face3Only[tile.ID{Face: tile.Face3, X: 0, Y: 0, Z: 0}]; string(got) != "face3" {
		t.Errorf("IterFace(Face3) tile = %q, want %q", got, "face3")
	}
}

func TestWriterRejectsNonPrimaryFaceWithoutPlaceholder(t *testing.T) {
	rootDir := t.TempDir()
	pattern := filepath.Join(rootDir, "{z}", "{x}", "{y}.png")

	writer, err := xyz.NewWriter(pattern)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	err = writer.WriteTile(tile.ID{Face: tile.Face1, X: 0, Y: 0, Z: 0}, []byte("x"))
	if !errors.Is(err, xyz.ErrFaceNotAddressable) {
		t.Errorf("WriteTile(face1) error = %v, want ErrFaceNotAddressable", err)
	}
}
