// Package mb provides API for reading tiles and metadata in MBTiles format.
//
// Note: User must properly initialize the sqlite3 library generic driver
// (e.g. import _ "github.com/mattn/go-sqlite3") before using this package.
package mb

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/nmatsuoka/go-quadtiles/tile"
)

// ErrNonPrimaryFace is returned for any tile ID outside FacePrimary:
// mbtiles has no cubed-sphere face concept, so it can only store the one.
var ErrNonPrimaryFace = errors.New("mb: mbtiles only addresses FacePrimary")

// Reader implements tile.Reader interface for MBTiles format.
type Reader struct {
	db   *sql.DB
	stmt *sql.Stmt
}

// NewReader creates a new Reader for the given MBTiles file path.
//
// The returned Reader must be closed after use to release database resources.
func NewReader(filePath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", filePath))
	if err != nil {
		return nil, err
	}

	stmt, err := db.Prepare("SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?")
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Reader{db: db, stmt: stmt}, nil
}

func (r *Reader) Close() error {
	return errors.Join(r.stmt.Close(), r.db.Close())
}

func (r *Reader) ReadMetadata() (map[string]string, error) {
	metadata := make(map[string]string)

	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		metadata[name] = value
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return metadata, nil
}

// ReadTile reads a single tile. mbtiles has no notion of a cubed-sphere
// face, so tileID must address FacePrimary; any other face returns
// ErrNonPrimaryFace.
func (r *Reader) ReadTile(tileID tile.ID) ([]byte, error) {
	if tileID.Face != tile.FacePrimary {
		return nil, ErrNonPrimaryFace
	}

	x, y, z := tileID.X, tileID.Y, tileID.Z
	y = (1 << z) - 1 - y // XYZ -> TMS

	var tileData []byte
	if err := r.stmt.QueryRow(z, x, y).Scan(&tileData); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return make([]byte, 0), nil
		}
		return nil, err
	}

	return tileData, nil
}

func (r *Reader) VisitTiles(visitor func(tile.ID, []byte) error) error {
	rows, err := r.db.Query("SELECT zoom_level, tile_column, tile_row, tile_data FROM tiles")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var x, y, z uint32
		var tileData []byte

		if err := rows.Scan(&z, &x, &y, &tileData); err != nil {
			return err
		}

		y = (1 << z) - 1 - y // TMS -> XYZ

		if err := visitor(tile.ID{Face: tile.FacePrimary, X: x, Y: y, Z: z}, tileData); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return err
	}

	return nil
}
