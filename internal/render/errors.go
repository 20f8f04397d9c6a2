package render

import (
	"errors"
	"fmt"
)

var (
	ErrUpscale  = errors.New("upscale must be at least 1")
	ErrTooLarge = errors.New("upscaled image too large")
	ErrGeometry = errors.New("board geometry invalid")
	ErrNoAssets = errors.New("no asset set")
)

// OutputError is a failed PNG encode or file write.
type OutputError struct {
	Op   string // "encode" or "write"
	Path string
	Err  error
}

func (e *OutputError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s png: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s png %s: %v", e.Op, e.Path, e.Err)
}

func (e *OutputError) Unwrap() error { return e.Err }
