// Package xyz provides API for reading and writing tiles in XYZ directory
// format, where tiles are stored as individual files with paths like
// "/z/x/y.ext", or, for a cubed-sphere directory tree, "/face/z/x/y.ext".
package xyz

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nmatsuoka/go-quadtiles/tile"
)

var ErrInvalidPattern = errors.New("xyz: invalid file pattern")

// ErrFaceNotAddressable is returned when a pattern without a "{face}"
// placeholder is asked to address a tile outside FacePrimary: with no
// placeholder to carry the face, every face would collide on the same path.
var ErrFaceNotAddressable = errors.New("xyz: pattern has no {face} placeholder for a non-primary face")

func validatePattern(pattern string) error {
	for _, p := range []string{"{x}", "{y}", "{z}"} {
		if !strings.Contains(pattern, p) {
			return fmt.Errorf("%w: placeholder %v not found", ErrInvalidPattern, p)
		}
	}
	return nil
}

// hasFacePlaceholder reports whether pattern addresses tiles across faces,
// e.g. "/tiles/{face}/{z}/{x}/{y}.pbf" for a cubic-archive-backed directory.
func hasFacePlaceholder(pattern string) bool {
	return strings.Contains(pattern, "{face}")
}

func formatPattern(pattern string, tileID tile.ID) (string, error) {
	if !hasFacePlaceholder(pattern) && tileID.Face != tile.FacePrimary {
		return "", ErrFaceNotAddressable
	}
	result := pattern
	result = strings.ReplaceAll(result, "{face}", fmt.Sprintf("%d", tileID.Face))
	result = strings.ReplaceAll(result, "{x}", fmt.Sprintf("%d", tileID.X))
	result = strings.ReplaceAll(result, "{y}", fmt.Sprintf("%d", tileID.Y))
	result = strings.ReplaceAll(result, "{z}", fmt.Sprintf("%d", tileID.Z))
	return result, nil
}
