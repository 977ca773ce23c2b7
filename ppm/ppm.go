/*
Package ppm implements the binary Portable Pixmap ("P6") raster container that
carries a pixelframe canvas.

Files are written with a fixed header of the magic, width, height and a
maximum color value of 255 separated by single spaces and newlines, followed
by exactly width*height*3 bytes of row-major RGB samples. Readers accept any
whitespace and comments in the header as netpbm allows, and ignore bytes
after the pixel data.
*/
package ppm

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/bodgit/pixelframe/canvas"
)

const (
	magic    = "P6"
	maxValue = 255

	// Reject dimensions beyond this many decimal digits before converting
	maxDigits = 9
)

// ErrMalformed is returned when the container header is missing or invalid,
// or declares more pixels than are present
var ErrMalformed = errors.New("ppm: malformed container")

func header(width, height int) string {
	return fmt.Sprintf("%s\n%d %d\n%d\n", magic, width, height, maxValue)
}

// Wrap returns the container for a width by height canvas
func Wrap(width, height int, pix []byte) ([]byte, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("ppm: invalid dimensions %dx%d", width, height)
	}
	if len(pix) != width*height*canvas.BytesPerPixel {
		return nil, fmt.Errorf("ppm: %d bytes of pixel data for %dx%d", len(pix), width, height)
	}

	h := header(width, height)
	b := make([]byte, 0, len(h)+len(pix))
	b = append(b, h...)
	b = append(b, pix...)

	return b, nil
}

// Unwrap parses the container in b and returns the canvas and any bytes
// following the pixel data. The canvas aliases b.
func Unwrap(b []byte) (*canvas.Canvas, []byte, error) {
	r := bytes.NewReader(b)

	var d decoder
	if err := d.readHeader(r); err != nil {
		return nil, nil, err
	}

	offset := len(b) - r.Len()
	n := uint64(d.width) * uint64(d.height) * canvas.BytesPerPixel
	if uint64(r.Len()) < n {
		return nil, nil, fmt.Errorf("%w: %dx%d needs %d bytes, have %d", ErrMalformed, d.width, d.height, n, r.Len())
	}

	end := offset + int(n)

	return &canvas.Canvas{
		Width:  d.width,
		Height: d.height,
		Pix:    b[offset:end:end],
	}, b[end:], nil
}
