package render

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Rotate180 returns src turned half a turn about its center. src is not modified.
func Rotate180(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		srow := src.PixOffset(b.Min.X, b.Min.Y+y)
		drow := dst.PixOffset(w-1, h-1-y)
		for x := 0; x < w; x++ {
			s := srow + 4*x
			d := drow - 4*x
			copy(dst.Pix[d:d+4], src.Pix[s:s+4])
		}
	}
	return dst
}

// MaxPixels caps the area of an upscaled image (1 GiB of RGBA).
const MaxPixels = 1 << 28

// Upscale enlarges src by an integer factor, repeating each pixel in an n x n block.
// The result must fit in MaxPixels; larger factors fail with ErrTooLarge before
// anything is allocated.
func Upscale(src *image.RGBA, n int) (*image.RGBA, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrUpscale, n)
	}
	if n == 1 {
		return Clone(src), nil
	}
	b := src.Bounds()
	if err := checkArea(b.Dx(), b.Dy(), n); err != nil {
		return nil, err
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*n, b.Dy()*n))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst, nil
}

// checkArea keeps (w*n)*(h*n) within MaxPixels without overflowing int.
func checkArea(w, h, n int) error {
	nn := int64(n)
	// n <= MaxPixels이면 n*n은 2^56 이하라 int64에서 넘치지 않음
	tooBig := nn > MaxPixels || int64(w)*nn > MaxPixels || int64(h)*nn > MaxPixels
	if area := int64(w) * int64(h); !tooBig && area > 0 {
		tooBig = nn*nn > MaxPixels/area
	}
	if tooBig {
		return fmt.Errorf("%w: %dx%d at x%d exceeds %d pixels", ErrTooLarge, w, h, n, MaxPixels)
	}
	return nil
}
