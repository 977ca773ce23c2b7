/*
Package preview renders a canvas as a GIF so a carrier can be inspected with
an ordinary image viewer. The rendering is lossy and cannot be decoded back
into a payload.
*/
package preview

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"io"

	"github.com/ericpauley/go-quantize/quantize"
)

// ErrInvalidOptions is returned for a palette size or scale out of range
var ErrInvalidOptions = errors.New("preview: invalid options")

const (
	maxColors = 256
	maxScale  = 64
)

// Options control the rendering
type Options struct {
	// NumColors is the palette size, 256 if zero
	NumColors int
	// Scale enlarges every pixel to a Scale by Scale block, 1 if zero
	Scale int
}

func scaleImage(m image.Image, scale int) image.Image {
	b := m.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r := image.Rect(0, 0, scale, scale).Add(image.Pt(x-b.Min.X, y-b.Min.Y).Mul(scale))
			draw.Draw(dst, r, image.NewUniform(m.At(x, y)), image.Point{}, draw.Src)
		}
	}
	return dst
}

// Encode writes a GIF rendering of m to w
func Encode(w io.Writer, m image.Image, opts *Options) error {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.NumColors == 0 {
		o.NumColors = maxColors
	}
	if o.Scale == 0 {
		o.Scale = 1
	}
	if o.NumColors < 1 || o.NumColors > maxColors {
		return fmt.Errorf("%w: %d colors", ErrInvalidOptions, o.NumColors)
	}
	if o.Scale < 1 || o.Scale > maxScale {
		return fmt.Errorf("%w: scale %d", ErrInvalidOptions, o.Scale)
	}

	if o.Scale > 1 {
		m = scaleImage(m, o.Scale)
	}

	return gif.Encode(w, m, &gif.Options{
		NumColors: o.NumColors,
		Quantizer: quantize.MedianCutQuantizer{},
		Drawer:    draw.Src,
	})
}
