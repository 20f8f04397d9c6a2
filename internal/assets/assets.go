// Package assets supplies the board background and piece sprites the renderer composites.
package assets

import (
	"fmt"
	"image"

	"github.com/park285/fenpix/internal/fen"
	"golang.org/x/image/draw"
)

// PieceSize is the sprite canvas edge in pixels. Sprites keep at least one transparent
// pixel on every side of their artwork.
const PieceSize = 16

// Set is a board background paired with the border thickness its grid was drawn with,
// plus the piece sprites keyed by FEN letter. A Set is read-only once built and may be
// shared between goroutines.
type Set struct {
	// ID distinguishes asset sets in cache keys.
	ID     string
	Board  *image.RGBA
	Border int
	Pieces map[fen.PieceCode]*image.RGBA
}

// Piece returns the sprite for code; ok is false when the set has none.
func (s *Set) Piece(code fen.PieceCode) (*image.RGBA, bool) {
	if s == nil || s.Pieces == nil {
		return nil, false
	}
	img, ok := s.Pieces[code]
	return img, ok && img != nil
}

// WithPieces returns a copy of s whose sprites are overridden by pieces. The board and
// untouched sprites are shared, not copied.
func (s *Set) WithPieces(id string, pieces map[fen.PieceCode]*image.RGBA) *Set {
	out := &Set{ID: id, Board: s.Board, Border: s.Border, Pieces: make(map[fen.PieceCode]*image.RGBA, len(s.Pieces))}
	for k, v := range s.Pieces {
		out.Pieces[k] = v
	}
	for k, v := range pieces {
		if v != nil {
			out.Pieces[k] = v
		}
	}
	return out
}

// AssetError reports an image that could not be read or decoded.
type AssetError struct {
	Name string
	Err  error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset %s: %v", e.Name, e.Err)
}

func (e *AssetError) Unwrap() error { return e.Err }

// toRGBA converts img to an *image.RGBA anchored at the origin.
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba
	}
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
