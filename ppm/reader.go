package ppm

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"io"
	"strconv"
)

func init() {
	image.RegisterFormat("ppm", magic, Decode, DecodeConfig)
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

type decoder struct {
	width  int
	height int
}

// token skips whitespace and comments and returns the next header token.
// The single whitespace byte terminating the token is consumed.
func (d *decoder) token(r io.ByteReader) (string, error) {
	var tok []byte
	for {
		c, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && len(tok) > 0 {
				return "", fmt.Errorf("%w: header ends without pixel data", ErrMalformed)
			}
			return "", fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		switch {
		case c == '#' && len(tok) == 0:
			for c != '\n' && c != '\r' {
				if c, err = r.ReadByte(); err != nil {
					return "", fmt.Errorf("%w: %v", ErrMalformed, err)
				}
			}
		case isSpace(c):
			if len(tok) > 0 {
				return string(tok), nil
			}
		default:
			tok = append(tok, c)
			if len(tok) > maxDigits {
				return "", fmt.Errorf("%w: header token too long", ErrMalformed)
			}
		}
	}
}

func (d *decoder) number(r io.ByteReader, name string) (int, error) {
	tok, err := d.token(r)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: invalid %s %q", ErrMalformed, name, tok)
	}
	return n, nil
}

func (d *decoder) readHeader(r io.ByteReader) error {
	tok, err := d.token(r)
	if err != nil {
		return err
	}
	if tok != magic {
		return fmt.Errorf("%w: bad magic %q", ErrMalformed, tok)
	}

	if d.width, err = d.number(r, "width"); err != nil {
		return err
	}
	if d.height, err = d.number(r, "height"); err != nil {
		return err
	}

	maxval, err := d.number(r, "maximum value")
	if err != nil {
		return err
	}
	if maxval != maxValue {
		return fmt.Errorf("%w: unsupported maximum value %d", ErrMalformed, maxval)
	}

	return nil
}

// Decode reads a binary PPM image from r and returns it as an image.Image.
func Decode(r io.Reader) (image.Image, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	c, _, err := Unwrap(b)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DecodeConfig returns the color model and dimensions of a binary PPM image
// without decoding the entire image.
func DecodeConfig(r io.Reader) (image.Config, error) {
	var d decoder
	if err := d.readHeader(bufio.NewReader(r)); err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: color.RGBAModel,
		Width:      d.width,
		Height:     d.height,
	}, nil
}
