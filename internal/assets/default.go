package assets

import (
	"fmt"
	"image"
	"image/color"

	"github.com/park285/fenpix/internal/fen"
	"golang.org/x/image/draw"
)

const (
	// DefaultBorder and DefaultSquare describe the generated board: 4 + 8*20 + 4 = 168 px.
	DefaultBorder = 4
	DefaultSquare = 20
)

var (
	lightSquare = color.RGBA{233, 207, 163, 255}
	darkSquare  = color.RGBA{187, 136, 96, 255}
	boardFrame  = color.RGBA{92, 60, 38, 255}

	whiteOutline = color.RGBA{24, 24, 24, 255}
	whiteFill    = color.RGBA{244, 242, 236, 255}
	blackOutline = color.RGBA{8, 8, 8, 255}
	blackFill    = color.RGBA{58, 54, 52, 255}
)

// '#' outline, 'o' body, ' ' transparent.
var pieceMasks = map[byte][]string{
	'P': {
		"                ",
		"                ",
		"                ",
		"      ####      ",
		"     #oooo#     ",
		"     #oooo#     ",
		"      #oo#      ",
		"     #oooo#     ",
		"      #oo#      ",
		"      #oo#      ",
		"     #oooo#     ",
		"    #oooooo#    ",
		"   #oooooooo#   ",
		"   ##########   ",
		"                ",
		"                ",
	},
	'R': {
		"                ",
		"                ",
		"   ## #### ##   ",
		"   #o##oo##o#   ",
		"   #oooooooo#   ",
		"    #oooooo#    ",
		"     #oooo#     ",
		"     #oooo#     ",
		"     #oooo#     ",
		"     #oooo#     ",
		"    #oooooo#    ",
		"   #oooooooo#   ",
		"  #oooooooooo#  ",
		"  ############  ",
		"                ",
		"                ",
	},
	'N': {
		"                ",
		"                ",
		"      # #       ",
		"     #o#o#      ",
		"    #ooooo#     ",
		"   #oo#oooo#    ",
		"  #oooooooo#    ",
		"  #oo##ooooo#   ",
		"   ## #ooooo#   ",
		"     #oooooo#   ",
		"    #ooooooo#   ",
		"   #oooooooo#   ",
		"  #oooooooooo#  ",
		"  ############  ",
		"                ",
		"                ",
	},
	'B': {
		"                ",
		"       ##       ",
		"      #oo#      ",
		"     #oo#o#     ",
		"    #oo#ooo#    ",
		"    #o#oooo#    ",
		"    #oooooo#    ",
		"     #oooo#     ",
		"      #oo#      ",
		"     #oooo#     ",
		"      #oo#      ",
		"    #oooooo#    ",
		"   #oooooooo#   ",
		"   ##########   ",
		"                ",
		"                ",
	},
	'Q': {
		"                ",
		"  #   #  #   #  ",
		" #o# #o##o# #o# ",
		"  #o##oooo##o#  ",
		"  #oooooooooo#  ",
		"   #oooooooo#   ",
		"   #oooooooo#   ",
		"    #oooooo#    ",
		"    #oooooo#    ",
		"     #oooo#     ",
		"    #oooooo#    ",
		"   #oooooooo#   ",
		"  #oooooooooo#  ",
		"  ############  ",
		"                ",
		"                ",
	},
	'K': {
		"                ",
		"       ##       ",
		"     ##oo##     ",
		"       ##       ",
		"   ### ## ###   ",
		"  #ooo#oo#ooo#  ",
		"  #oooo##oooo#  ",
		"  #oooooooooo#  ",
		"   #oooooooo#   ",
		"    #oooooo#    ",
		"     #oooo#     ",
		"    #oooooo#    ",
		"   #oooooooo#   ",
		"  ############  ",
		"                ",
		"                ",
	},
}

// Default builds the bundled pixel-art set. Each call returns a fresh Set owned by the
// caller.
func Default() (*Set, error) {
	pieces := make(map[fen.PieceCode]*image.RGBA, len(fen.PieceCodes))
	for _, code := range fen.PieceCodes {
		outline, fill := blackOutline, blackFill
		if code.White() {
			outline, fill = whiteOutline, whiteFill
		}
		img, err := spriteFromMask(pieceMasks[code.Kind()], outline, fill)
		if err != nil {
			return nil, &AssetError{Name: code.AssetName(), Err: err}
		}
		pieces[code] = img
	}
	return &Set{
		ID:     "default",
		Board:  NewBoard(DefaultSquare, DefaultBorder),
		Border: DefaultBorder,
		Pieces: pieces,
	}, nil
}

// NewBoard draws a checkered 8x8 board with a plain frame of the given thickness.
// The a8 square (top left) is light.
func NewBoard(square, border int) *image.RGBA {
	size := 8*square + 2*border
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(boardFrame), image.Point{}, draw.Src)
	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			clr := lightSquare
			if (file+rank)%2 == 1 {
				clr = darkSquare
			}
			x := border + file*square
			y := border + rank*square
			draw.Draw(img, image.Rect(x, y, x+square, y+square), image.NewUniform(clr), image.Point{}, draw.Src)
		}
	}
	return img
}

func spriteFromMask(mask []string, outline, fill color.RGBA) (*image.RGBA, error) {
	if len(mask) != PieceSize {
		return nil, fmt.Errorf("mask has %d rows, want %d", len(mask), PieceSize)
	}
	img := image.NewRGBA(image.Rect(0, 0, PieceSize, PieceSize))
	for y, row := range mask {
		if len(row) != PieceSize {
			return nil, fmt.Errorf("mask row %d has %d columns, want %d", y, len(row), PieceSize)
		}
		for x := 0; x < len(row); x++ {
			switch row[x] {
			case ' ':
			case '#':
				img.SetRGBA(x, y, outline)
			case 'o':
				img.SetRGBA(x, y, fill)
			default:
				return nil, fmt.Errorf("mask row %d: unexpected %q", y, row[x])
			}
		}
	}
	return img, nil
}
