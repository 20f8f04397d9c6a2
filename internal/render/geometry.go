package render

import (
	"fmt"
	"image"

	"github.com/park285/fenpix/internal/assets"
)

// Geometry locates the 8x8 grid inside a board image.
type Geometry struct {
	Border int
	Square int
	// Offset centers a PieceSize sprite inside a square.
	Offset int
}

// NewGeometry derives the grid from the board width and the border the board was drawn
// with. The two must agree; nothing here can detect a board whose squares are not
// actually Square pixels wide.
func NewGeometry(boardWidth, border int) (Geometry, error) {
	if border < 0 {
		return Geometry{}, fmt.Errorf("%w: negative border %d", ErrGeometry, border)
	}
	square := (boardWidth - 2*border) / 8
	if square <= 0 {
		return Geometry{}, fmt.Errorf("%w: board width %d leaves no room for squares inside border %d", ErrGeometry, boardWidth, border)
	}
	return Geometry{
		Border: border,
		Square: square,
		Offset: (square - assets.PieceSize) / 2,
	}, nil
}

// SpriteOrigin is the top-left pixel of a PieceSize sprite drawn on (file, rank).
func (g Geometry) SpriteOrigin(file, rank int) image.Point {
	return image.Point{
		X: file*g.Square + g.Offset + g.Border,
		Y: rank*g.Square + g.Offset + g.Border,
	}
}

// SpriteAt centers a sprite of the given size on (file, rank). For PieceSize
// sprites it matches SpriteOrigin.
func (g Geometry) SpriteAt(file, rank int, size image.Point) image.Point {
	return image.Point{
		X: file*g.Square + g.Border + (g.Square-size.X)/2,
		Y: rank*g.Square + g.Border + (g.Square-size.Y)/2,
	}
}

// Fits reports whether a sprite of the given size stays inside one square.
func (g Geometry) Fits(size image.Point) bool {
	return size.X <= g.Square && size.Y <= g.Square
}
