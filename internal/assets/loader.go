package assets

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"path"

	"github.com/park285/fenpix/internal/fen"
	yaml "gopkg.in/yaml.v3"
)

const (
	boardFile     = "board.png"
	boardMetaFile = "board.yaml"
	piecesDir     = "pieces"
)

// boardMeta is the optional board.yaml next to board.png.
type boardMeta struct {
	Border *int `yaml:"border"`
}

// LoadDir reads an asset directory:
//
//	board.png         board background (required)
//	board.yaml        `border: <px>` (optional, defaults to DefaultBorder)
//	pieces/wP.png ... one sprite per piece code (missing files leave squares blank)
func LoadDir(fsys fs.FS) (*Set, error) {
	h := sha256.New()

	raw, err := fs.ReadFile(fsys, boardFile)
	if err != nil {
		return nil, &AssetError{Name: boardFile, Err: err}
	}
	h.Write(raw)
	board, err := decodePNG(raw)
	if err != nil {
		return nil, &AssetError{Name: boardFile, Err: err}
	}

	border := DefaultBorder
	if meta, err := fs.ReadFile(fsys, boardMetaFile); err == nil {
		var m boardMeta
		if err := yaml.Unmarshal(meta, &m); err != nil {
			return nil, &AssetError{Name: boardMetaFile, Err: err}
		}
		if m.Border != nil {
			if *m.Border < 0 {
				return nil, &AssetError{Name: boardMetaFile, Err: fmt.Errorf("negative border %d", *m.Border)}
			}
			border = *m.Border
		}
		h.Write(meta)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, &AssetError{Name: boardMetaFile, Err: err}
	}

	pieces := make(map[fen.PieceCode]*image.RGBA, len(fen.PieceCodes))
	for _, code := range fen.PieceCodes {
		name := path.Join(piecesDir, code.AssetName()+".png")
		raw, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, &AssetError{Name: name, Err: err}
		}
		h.Write(raw)
		img, err := decodePNG(raw)
		if err != nil {
			return nil, &AssetError{Name: name, Err: err}
		}
		pieces[code] = img
	}

	return &Set{
		ID:     "dir-" + hex.EncodeToString(h.Sum(nil))[:16],
		Board:  board,
		Border: border,
		Pieces: pieces,
	}, nil
}

func decodePNG(raw []byte) (*image.RGBA, error) {
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return toRGBA(img), nil
}
