// Package fenpix renders chess positions given in FEN as PNG images.
//
//	set, err := fenpix.DefaultAssets()
//	if err != nil { ... }
//	err = fenpix.RenderToPath("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b", "board.png", 3, set)
package fenpix

import (
	"github.com/park285/fenpix/internal/assets"
	"github.com/park285/fenpix/internal/fen"
	"github.com/park285/fenpix/internal/render"
)

type (
	Assets      = assets.Set
	AssetError  = assets.AssetError
	FENError    = fen.Error
	OutputError = render.OutputError
	PieceCode   = fen.PieceCode
)

var (
	ErrMalformedFEN = fen.ErrMalformed
	ErrUpscale      = render.ErrUpscale
	ErrTooLarge     = render.ErrTooLarge
	ErrGeometry     = render.ErrGeometry
)

// DefaultAssets builds the bundled board and pieces.
func DefaultAssets() (*Assets, error) { return assets.Default() }

// RenderToPath draws fen, enlarged upscale times, and writes it to path as PNG.
func RenderToPath(fen, path string, upscale int, set *Assets) error {
	r, err := render.NewRenderer(set)
	if err != nil {
		return err
	}
	return r.RenderToPath(fen, path, upscale)
}

// RenderToBuffer draws fen, enlarged upscale times, and returns the PNG bytes.
func RenderToBuffer(fen string, upscale int, set *Assets) ([]byte, error) {
	r, err := render.NewRenderer(set)
	if err != nil {
		return nil, err
	}
	return r.RenderPNG(fen, upscale)
}
