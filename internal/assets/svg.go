package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io/fs"

	"github.com/park285/fenpix/internal/fen"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// LoadSVGPieces rasterizes wP.svg ... bK.svg from fsys into size x size sprites. The
// artwork is fitted inside a one pixel transparent margin. Missing files are skipped.
func LoadSVGPieces(fsys fs.FS, size int) (map[fen.PieceCode]*image.RGBA, error) {
	if size < 3 {
		return nil, fmt.Errorf("svg piece size %d too small", size)
	}
	out := make(map[fen.PieceCode]*image.RGBA, len(fen.PieceCodes))
	for _, code := range fen.PieceCodes {
		name := code.AssetName() + ".svg"
		data, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, &AssetError{Name: name, Err: err}
		}
		img, err := rasterizeSVG(data, size)
		if err != nil {
			return nil, &AssetError{Name: name, Err: err}
		}
		out[code] = img
	}
	return out, nil
}

func rasterizeSVG(data []byte, size int) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(sanitizeSVG(data)))
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}
	if icon.ViewBox.W <= 0 {
		icon.ViewBox.W = float64(size)
	}
	if icon.ViewBox.H <= 0 {
		icon.ViewBox.H = float64(size)
	}
	icon.SetTarget(1, 1, float64(size-2), float64(size-2))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)
	return img, nil
}

// sanitizeSVG patches style spellings oksvg fails to parse.
func sanitizeSVG(svg []byte) []byte {
	fixed := bytes.ReplaceAll(svg, []byte("fill:000000"), []byte("fill:#000000"))
	fixed = bytes.ReplaceAll(fixed, []byte("fill: 000000"), []byte("fill:#000000"))
	fixed = bytes.ReplaceAll(fixed, []byte("stroke: 000000"), []byte("stroke:#000000"))
	fixed = bytes.ReplaceAll(fixed, []byte("fill: #"), []byte("fill:#"))
	fixed = bytes.ReplaceAll(fixed, []byte("stroke: #"), []byte("stroke:#"))
	fixed = bytes.ReplaceAll(fixed, []byte("stop-color: #"), []byte("stop-color:#"))
	return fixed
}
