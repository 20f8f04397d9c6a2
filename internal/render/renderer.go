package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/park285/fenpix/internal/assets"
	"github.com/park285/fenpix/internal/fen"
)

// Renderer draws FEN records with one asset set. It keeps no mutable state and is safe
// for concurrent use as long as the asset set is not modified.
type Renderer struct {
	set    *assets.Set
	geom   Geometry
	strict bool
}

type Option func(*Renderer)

// WithStrict rejects malformed placement fields instead of drawing them leniently.
func WithStrict(strict bool) Option {
	return func(r *Renderer) { r.strict = strict }
}

func NewRenderer(set *assets.Set, opts ...Option) (*Renderer, error) {
	if set == nil || set.Board == nil {
		return nil, ErrNoAssets
	}
	geom, err := NewGeometry(set.Board.Bounds().Dx(), set.Border)
	if err != nil {
		return nil, err
	}
	for code, sprite := range set.Pieces {
		if sprite == nil {
			continue
		}
		if size := sprite.Bounds().Size(); !geom.Fits(size) {
			return nil, fmt.Errorf("%w: piece %s is %dx%d, square is %d", ErrGeometry, code, size.X, size.Y, geom.Square)
		}
	}
	r := &Renderer{set: set, geom: geom}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Renderer) Assets() *assets.Set { return r.set }

func (r *Renderer) Geometry() Geometry { return r.geom }

func (r *Renderer) Strict() bool { return r.strict }

func (r *Renderer) parse(record string) (*fen.Position, error) {
	if r.strict {
		return fen.ParseStrict(record)
	}
	return fen.Parse(record)
}

// Render returns the board for record enlarged upscale times. With black to move the
// result is seen from black's side.
func (r *Renderer) Render(record string, upscale int) (*image.RGBA, error) {
	pos, err := r.parse(record)
	if err != nil {
		return nil, err
	}
	return r.RenderPosition(pos, upscale)
}

// RenderPosition is Render for an already parsed record.
func (r *Renderer) RenderPosition(pos *fen.Position, upscale int) (*image.RGBA, error) {
	if pos == nil {
		return nil, &fen.Error{Reason: "no position"}
	}
	if upscale < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrUpscale, upscale)
	}
	black := pos.BlackToMove()
	img := Compose(pos.Placements(), r.set, r.geom, black)
	img, err := Upscale(img, upscale)
	if err != nil {
		return nil, err
	}
	if black {
		img = Rotate180(img)
	}
	return img, nil
}

// Parse reads record the way Render does, honouring WithStrict.
func (r *Renderer) Parse(record string) (*fen.Position, error) { return r.parse(record) }

// RenderPNG is Render followed by PNG encoding.
func (r *Renderer) RenderPNG(record string, upscale int) ([]byte, error) {
	img, err := r.Render(record, upscale)
	if err != nil {
		return nil, err
	}
	return EncodePNG(img)
}

// EncodePNG encodes img in memory.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, img, ""); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderToPath writes the PNG to path. The image goes to a temporary file in the same
// directory first and is renamed into place, so path is either the complete image or
// untouched.
func (r *Renderer) RenderToPath(record, path string, upscale int) error {
	img, err := r.Render(record, upscale)
	if err != nil {
		return err
	}
	return WritePNG(path, img)
}

// WritePNG atomically replaces path with img encoded as PNG.
func WritePNG(path string, img image.Image) error {
	return writeAtomic(path, func(w io.Writer) error { return encode(w, img, path) })
}

// WriteFile atomically replaces path with already encoded data.
func WriteFile(path string, data []byte) error {
	return writeAtomic(path, func(w io.Writer) error {
		if _, err := w.Write(data); err != nil {
			return &OutputError{Op: "write", Path: path, Err: err}
		}
		return nil
	})
}

func writeAtomic(path string, fill func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".fenpix-*.png.tmp")
	if err != nil {
		return &OutputError{Op: "write", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := fill(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return &OutputError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &OutputError{Op: "write", Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return &OutputError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &OutputError{Op: "write", Path: path, Err: err}
	}
	committed = true
	return nil
}

func encode(w io.Writer, img image.Image, path string) error {
	if err := png.Encode(w, img); err != nil {
		return &OutputError{Op: "encode", Path: path, Err: err}
	}
	return nil
}
