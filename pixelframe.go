/*
Package pixelframe is a library for packing arbitrary bytes into the pixels of
a binary PPM image and recovering them exactly.

The payload is framed with one or two self-describing headers, laid out as a
zero padded grid of RGB pixels and wrapped in a P6 container. When the header
is repeated, a damaged first copy is detected by its checksum and the second
copy is used instead.
*/
package pixelframe

import (
	"crypto/ed25519"
	"fmt"

	"github.com/bodgit/pixelframe/canvas"
	"github.com/bodgit/pixelframe/frame"
	"github.com/bodgit/pixelframe/ppm"
	"github.com/bodgit/pixelframe/sign"
)

// DefaultWidth is the canvas width in pixels used when none is given
const DefaultWidth = 256

// EncodeOptions control how a payload is encoded
type EncodeOptions struct {
	Width       int
	Redundant   bool
	Compression frame.Compression
	// SigningKey, if set, appends a signature over the canvas
	SigningKey ed25519.PrivateKey
}

// DecodeOptions control how a container is decoded
type DecodeOptions struct {
	// VerifyKey, if set, requires a valid signature before decoding
	VerifyKey ed25519.PublicKey
}

type encoded struct {
	container []byte
	canvas    *canvas.Canvas
	header    *frame.Header
}

func encode(payload []byte, opts *EncodeOptions) (*encoded, error) {
	var o EncodeOptions
	if opts != nil {
		o = *opts
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}

	f, err := frame.Encode(payload, frame.Options{
		Redundant:   o.Redundant,
		Compression: o.Compression,
	})
	if err != nil {
		return nil, err
	}

	c, err := canvas.New(f, o.Width)
	if err != nil {
		return nil, err
	}

	// The canvas must decode before it is handed out
	h, _, err := frame.Locate(c.Pix)
	if err != nil {
		return nil, fmt.Errorf("encoded canvas does not verify: %w", err)
	}

	b, err := ppm.Wrap(c.Width, c.Height, c.Pix)
	if err != nil {
		return nil, err
	}
	if o.SigningKey != nil {
		b = append(b, sign.Sign(o.SigningKey, c.Pix)...)
	}

	return &encoded{
		container: b,
		canvas:    c,
		header:    h,
	}, nil
}

// Encode returns the container carrying payload
func Encode(payload []byte, opts *EncodeOptions) ([]byte, error) {
	e, err := encode(payload, opts)
	if err != nil {
		return nil, err
	}
	return e.container, nil
}

// Decode returns the payload carried by the container in b
func Decode(b []byte, opts *DecodeOptions) ([]byte, error) {
	c, trailer, err := ppm.Unwrap(b)
	if err != nil {
		return nil, err
	}

	if opts != nil && opts.VerifyKey != nil {
		if err := sign.Verify(opts.VerifyKey, c.Pix, trailer); err != nil {
			return nil, err
		}
	}

	return frame.Decode(c.Pix)
}
