package archive_test

import (
	"testing"

	"github.com/nmatsuoka/go-quadtiles/archive"
	"github.com/nmatsuoka/go-quadtiles/tile"
)

func buildPlanar(t *testing.T, write func(w archive.Writer)) []byte {
	t.Helper()
	sink := archive.NewMemorySink()
	w, err := archive.NewWriter(sink, false)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	write(w)
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return sink.Bytes()
}

func TestWriterSingleTileRoundTrip(t *testing.T) {
	data := buildPlanar(t, func(w archive.Writer) {
		if err := w.WriteTile(tile.ID{Face: tile.FacePrimary, X: 0, Y: 0, Z: 0}, []byte("hello world")); err != nil {
			t.Fatalf("WriteTile failed: %v", err)
		}
	})

	r, err := archive.NewReader(archive.NewMemoryRangeReader(data))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	if r.IsCubic() {
		t.Error("IsCubic() = true, want false")
	}

	got, found, err := r.GetTile(tile.ID{Face: tile.FacePrimary, X: 0, Y: 0, Z: 0})
	if err != nil || !found {
		t.Fatalf("GetTile(0,0,0) = %q, %v, %v", got, found, err)
	}
	if string(got) != "hello world" {
		t.Errorf("GetTile(0,0,0) = %q, want %q", got, "hello world")
	}

	minZ, maxZ := r.ZoomRange()
	if minZ != 0 || maxZ != 0 {
		t.Errorf("ZoomRange() = (%d,%d), want (0,0)", minZ, maxZ)
	}
}

func TestWriterDedupAndRunLength(t *testing.T) {
	var addressed, contents int
	data := buildPlanar(t, func(w archive.Writer) {
		if err := w.WriteTile(tile.ID{Face: tile.FacePrimary, X: 0, Y: 0, Z: 0}, []byte("hello world")); err != nil {
			t.Fatalf("WriteTile(0,0,0) failed: %v", err)
		}
		if err := w.WriteTile(tile.ID{Face: tile.FacePrimary, X: 0, Y: 1, Z: 1}, []byte("hello world")); err != nil {
			t.Fatalf("WriteTile(1,0,1) failed: %v", err)
		}
		if err := w.WriteTile(tile.ID{Face: tile.FacePrimary, X: 2, Y: 9, Z: 5}, []byte("hello world 2")); err != nil {
			t.Fatalf("WriteTile(5,2,9) failed: %v", err)
		}
	})

	r, err := archive.NewReader(archive.NewMemoryRangeReader(data))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	for _, tc := range []struct {
		z, x, y uint32
		want    string
	}{
		{0, 0, 0, "hello world"},
		{1, 0, 1, "hello world"},
		{5, 2, 9, "hello world 2"},
	} {
		got, found, err := r.GetTile(tile.ID{Face: tile.FacePrimary, X: tc.x, Y: tc.y, Z: tc.z})
		if err != nil || !found {
			t.Fatalf("GetTile(%d,%d,%d) = %q, %v, %v", tc.z, tc.x, tc.y, got, found, err)
		}
		if string(got) != tc.want {
			t.Errorf("GetTile(%d,%d,%d) = %q, want %q", tc.z, tc.x, tc.y, got, tc.want)
		}
	}

	count := 0
	unique := map[string]struct{}{}
	err = r.VisitTiles(func(id tile.ID, payload []byte) error {
		count++
		unique[string(payload)] = struct{}{}
		return nil
	})
	if err != nil {
		t.Fatalf("VisitTiles failed: %v", err)
	}
	addressed = count
	contents = len(unique)
	if addressed != 3 {
		t.Errorf("addressed tiles = %d, want 3", addressed)
	}
	if contents != 2 {
		t.Errorf("distinct contents = %d, want 2", contents)
	}
}

func TestWriterMissingTile(t *testing.T) {
	data := buildPlanar(t, func(w archive.Writer) {
		if err := w.WriteTile(tile.ID{Face: tile.FacePrimary, X: 0, Y: 0, Z: 0}, []byte("x")); err != nil {
			t.Fatalf("WriteTile failed: %v", err)
		}
	})

	r, err := archive.NewReader(archive.NewMemoryRangeReader(data))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	if _, found, err := r.GetTile(tile.ID{Face: tile.FacePrimary, X: 1, Y: 1, Z: 3}); err != nil || found {
		t.Errorf("GetTile(missing) = found=%v err=%v, want found=false err=nil", found, err)
	}
}

func TestWriterLargeFanOut(t *testing.T) {
	const maxZoom = 7
	tileCount := 0
	data := buildPlanar(t, func(w archive.Writer) {
		for z := uint32(0); z <= maxZoom; z++ {
			n := uint32(1) << z
			for x := uint32(0); x < n; x++ {
				for y := uint32(0); y < n; y++ {
					payload := []byte{byte(z), byte(x), byte(y)}
					if err := w.WriteTile(tile.ID{Face: tile.FacePrimary, X: x, Y: y, Z: z}, payload); err != nil {
						t.Fatalf("WriteTile(%d,%d,%d) failed: %v", z, x, y, err)
					}
					tileCount++
				}
			}
		}
	})

	if tileCount != 21845 {
		t.Fatalf("tileCount = %d, want 21845", tileCount)
	}

	r, err := archive.NewReader(archive.NewMemoryRangeReader(data))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	got, found, err := r.GetTile(tile.ID{Face: tile.FacePrimary, X: 22, Y: 45, Z: 6})
	if err != nil || !found {
		t.Fatalf("GetTile(6,22,45) = %v, %v, %v", got, found, err)
	}
	want := []byte{6, 22, 45}
	if string(got) != string(want) {
		t.Errorf("GetTile(6,22,45) = %v, want %v", got, want)
	}

	seen := 0
	err = r.VisitTiles(func(id tile.ID, payload []byte) error {
		seen++
		return nil
	})
	if err != nil {
		t.Fatalf("VisitTiles failed: %v", err)
	}
	if seen != tileCount {
		t.Errorf("VisitTiles saw %d tiles, want %d", seen, tileCount)
	}
}

func TestWriterCubicFaceIsolation(t *testing.T) {
	sink := archive.NewMemorySink()
	w, err := archive.NewWriter(sink, true)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.WriteTile(tile.ID{Face: tile.FacePrimary, X: 0, Y: 0, Z: 0}, []byte("face0")); err != nil {
		t.Fatalf("WriteTile face0 failed: %v", err)
	}
	if err := w.WriteTile(tile.ID{Face: tile.Face3, X: 0, Y: 0, Z: 0}, []byte("face3")); err != nil {
		t.Fatalf("WriteTile face3 failed: %v", err)
	}
	if err := w.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := archive.NewReader(archive.NewMemoryRangeReader(sink.Bytes()))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	if !r.IsCubic() {
		t.Fatal("IsCubic() = false, want true")
	}

	got0, found, err := r.GetTile(tile.ID{Face: tile.FacePrimary, X: 0, Y: 0, Z: 0})
	if err != nil || !found || string(got0) != "face0" {
		t.Errorf("GetTile(face0) = %q, %v, %v", got0, found, err)
	}
	got3, found, err := r.GetTile(tile.ID{Face: tile.Face3, X: 0, Y: 0, Z: 0})
	if err != nil || !found || string(got3) != "face3" {
		t.Errorf("GetTile(face3) = %q, %v, %v", got3, found, err)
	}

	if _, found, err := r.GetTile(tile.ID{Face: tile.Face1, X: 0, Y: 0, Z: 0}); err != nil || found {
		t.Errorf("GetTile(face1) = found=%v err=%v, want false/nil", found, err)
	}

	for _, tc := range []struct {
		face tile.Face
		want uint64
	}{
		{tile.FacePrimary, 1},
		{tile.Face3, 1},
		{tile.Face1, 0},
	} {
		count, err := r.FaceEntryCount(tc.face)
		if err != nil {
			t.Fatalf("FaceEntryCount(%v) failed: %v", tc.face, err)
		}
		if count != tc.want {
			t.Errorf("FaceEntryCount(%v) = %d, want %d", tc.face, count, tc.want)
		}
	}
}

func TestWriterRejectsNonZeroFaceOnPlanarArchive(t *testing.T) {
	sink := archive.NewMemorySink()
	w, err := archive.NewWriter(sink, false)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.WriteTile(tile.ID{Face: tile.Face1, X: 0, Y: 0, Z: 0}, []byte("x")); err == nil {
		t.Error("WriteTile(face1) on planar archive succeeded, want error")
	}
}
