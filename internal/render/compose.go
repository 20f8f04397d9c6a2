// Package render turns a FEN record into a board image.
package render

import (
	"image"
	"iter"

	"github.com/park285/fenpix/internal/assets"
	"github.com/park285/fenpix/internal/fen"
	"golang.org/x/image/draw"
)

// Compose paints the placed sprites over a copy of the set's board at 1x scale.
//
// With black to move every sprite is turned 180 degrees before it is painted. The
// whole image is turned again after upscaling (see Upscale and Rotate180), which puts
// black's home rank at the bottom and brings the artwork back upright. Squares whose
// sprite is missing from the set stay empty.
func Compose(placements iter.Seq[fen.Placement], set *assets.Set, geom Geometry, blackToMove bool) *image.RGBA {
	dst := Clone(set.Board)
	for pl := range placements {
		sprite, ok := set.Piece(pl.Piece)
		if !ok {
			continue
		}
		if blackToMove {
			sprite = Rotate180(sprite)
		}
		sb := sprite.Bounds()
		at := geom.SpriteAt(pl.File, pl.Rank, sb.Size())
		r := image.Rectangle{Min: at, Max: at.Add(sb.Size())}
		draw.Draw(dst, r, sprite, sb.Min, draw.Over)
	}
	return dst
}

// Clone copies src into a new buffer anchored at the origin.
func Clone(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
