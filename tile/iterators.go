package tile

import (
	"errors"
	"iter"
)

var errVisitCancelled = errors.New("tile: visit cancelled")

// IterTiles returns an iterator over every tile a Visitor yields, across
// every face it addresses. Iteration may panic on unrecoverable errors.
func IterTiles(r Visitor) iter.Seq2[ID, []byte] {
	return func(yield func(ID, []byte) bool) {
		err := r.VisitTiles(func(tileID ID, tileData []byte) error {
			if !yield(tileID, tileData) {
				return errVisitCancelled
			}
			return nil
		})
		if err != nil && err != errVisitCancelled {
			panic(err)
		}
	}
}

// IterFace returns an iterator over only the tiles on the given face,
// so a caller can walk a single cubed-sphere face of a Visitor that
// addresses several without threading face-filtering logic through its
// own VisitTiles loop.
func IterFace(r Visitor, face Face) iter.Seq2[ID, []byte] {
	return func(yield func(ID, []byte) bool) {
		err := r.VisitTiles(func(tileID ID, tileData []byte) error {
			if tileID.Face != face {
				return nil
			}
			if !yield(tileID, tileData) {
				return errVisitCancelled
			}
			return nil
		})
		if err != nil && err != errVisitCancelled {
			panic(err)
		}
	}
}

func IterLocations(r LocationVisitor) iter.Seq2[ID, Location] {
	return func(yield func(ID, Location) bool) {
		err := r.VisitLocations(func(tileID ID, location Location) error {
			if !yield(tileID, location) {
				return errVisitCancelled
			}
			return nil
		})
		if err != nil && err != errVisitCancelled {
			panic(err)
		}
	}
}
