package ppm

import (
	"bufio"
	"errors"
	"image"
	"image/color"
	"io"

	"github.com/bodgit/pixelframe/canvas"
)

// Encode writes the Image m to w in binary PPM format. Any alpha channel is
// discarded.
func Encode(w io.Writer, m image.Image) error {
	b := m.Bounds()
	if b.Dx() < 1 || b.Dy() < 1 {
		return errors.New("ppm: image is empty")
	}

	if c, ok := m.(*canvas.Canvas); ok {
		out, err := Wrap(c.Width, c.Height, c.Pix)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(header(b.Dx(), b.Dy())); err != nil {
		return err
	}

	var tmp [canvas.BytesPerPixel]byte
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)
			tmp[0], tmp[1], tmp[2] = c.R, c.G, c.B
			if _, err := bw.Write(tmp[:]); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}
