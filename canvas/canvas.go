/*
Package canvas implements the geometry used to lay a flat frame out as a grid
of RGB pixels.

A canvas is always exactly width*height*3 bytes. The height is the smallest
number of rows, at least one, that holds the frame, and any bytes after the
frame are zero.
*/
package canvas

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
)

const (
	// BytesPerPixel is the number of frame bytes stored in each pixel
	BytesPerPixel = 3

	// MaxWidth is the widest canvas that can be laid out
	MaxWidth = 1 << 24
)

// ErrInvalidWidth is returned for a width outside 1 to MaxWidth pixels
var ErrInvalidWidth = errors.New("canvas: invalid width")

// Canvas is a frame padded out to a width by height RGB pixel grid. It
// implements the image.Image interface.
type Canvas struct {
	Width  int
	Height int
	Pix    []byte
}

// Dimensions returns the width and height of the canvas needed to hold n
// bytes at the given width
func Dimensions(n, width int) (int, int, error) {
	if width < 1 || width > MaxWidth {
		return 0, 0, fmt.Errorf("%w: %d, must be between 1 and %d", ErrInvalidWidth, width, MaxWidth)
	}
	if n < 0 || n > math.MaxInt-width*BytesPerPixel {
		return 0, 0, fmt.Errorf("canvas: cannot hold %d bytes", n)
	}
	stride := width * BytesPerPixel
	height := (n + stride - 1) / stride
	if height < 1 {
		height = 1
	}
	return width, height, nil
}

// New lays frame out at the given width. The frame is copied so the canvas
// does not alias it.
func New(frame []byte, width int) (*Canvas, error) {
	width, height, err := Dimensions(len(frame), width)
	if err != nil {
		return nil, err
	}

	pix := make([]byte, width*height*BytesPerPixel)
	copy(pix, frame)

	return &Canvas{
		Width:  width,
		Height: height,
		Pix:    pix,
	}, nil
}

// ColorModel returns the canvas color model
func (c *Canvas) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds returns the canvas dimensions
func (c *Canvas) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.Width, c.Height)
}

// At returns the opaque color of the pixel at (x, y)
func (c *Canvas) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(c.Bounds())) {
		return color.RGBA{}
	}
	i := (y*c.Width + x) * BytesPerPixel
	return color.RGBA{c.Pix[i+0], c.Pix[i+1], c.Pix[i+2], 0xff}
}
