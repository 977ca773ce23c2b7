/*
Package frame implements the self-describing byte frame that carries a payload
inside a pixelframe canvas.

A frame is one or two identical 13 byte headers followed by the stored payload:

	0-3:  magic ("PXF1")
	4:    flags
	5-8:  stored payload length (big-endian)
	9-12: CRC-32 of the stored payload (big-endian)

Bit 0 of the flags is set when a second copy of the header follows the first,
in which case the payload starts at twice the header size. Bits 1 and 2 hold
the payload compression. All other bits are reserved and must be zero. For a
compressed payload the checksum also covers the compression code, appended as
a single byte after the stored payload.
*/
package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/bodgit/pixelframe/crc32"
)

const (
	// Magic identifies the start of a frame header
	Magic = "PXF1"

	// HeaderSize is the size in bytes of a single header copy
	HeaderSize = 13

	flagRedundant    = 1 << 0
	compressionShift = 1
	compressionMask  = 0x3 << compressionShift
	reservedMask     = ^uint8(flagRedundant | compressionMask)
)

var (
	// ErrCorrupted is returned when no header copy validates
	ErrCorrupted = errors.New("frame: corrupted")
	// ErrTruncated is returned when two matching header copies declare
	// more payload than the buffer holds
	ErrTruncated = errors.New("frame: truncated")
	// ErrTooLarge is returned when the stored payload does not fit the
	// length field
	ErrTooLarge = errors.New("frame: payload too large")

	errShortHeader = errors.New("frame: short header")
	errBadMagic    = errors.New("frame: bad magic")
	errBadFlags    = errors.New("frame: bad flags")
)

// Header is a single decoded header copy. It implements the
// encoding.BinaryMarshaler and encoding.BinaryUnmarshaler interfaces.
type Header struct {
	Flags    uint8
	Length   uint32
	Checksum uint32
}

// Redundant reports whether the header claims a second copy follows it
func (h *Header) Redundant() bool {
	return h.Flags&flagRedundant != 0
}

// Compression returns the compression applied to the stored payload
func (h *Header) Compression() Compression {
	return Compression(h.Flags & compressionMask >> compressionShift)
}

// PayloadOffset returns the offset of the payload implied by the flags
func (h *Header) PayloadOffset() int {
	if h.Redundant() {
		return HeaderSize * 2
	}
	return HeaderSize
}

// MarshalBinary encodes the header into binary form and returns the result
func (h *Header) MarshalBinary() ([]byte, error) {
	b := make([]byte, HeaderSize)
	copy(b, Magic)
	b[4] = h.Flags
	binary.BigEndian.PutUint32(b[5:], h.Length)
	binary.BigEndian.PutUint32(b[9:], h.Checksum)
	return b, nil
}

// UnmarshalBinary decodes the header from binary form
func (h *Header) UnmarshalBinary(b []byte) error {
	if len(b) < HeaderSize {
		return errShortHeader
	}
	if !bytes.Equal(b[:len(Magic)], []byte(Magic)) {
		return errBadMagic
	}
	flags := b[4]
	if flags&reservedMask != 0 || !Compression(flags&compressionMask>>compressionShift).valid() {
		return errBadFlags
	}
	h.Flags = flags
	h.Length = binary.BigEndian.Uint32(b[5:])
	h.Checksum = binary.BigEndian.Uint32(b[9:])
	return nil
}

// checksum returns the CRC-32 of the stored payload. When the payload is
// compressed the compression code is appended so damage to the compression
// bits of the flags is caught by the checksum.
func checksum(stored []byte, c Compression) uint32 {
	sum := crc32.Checksum(stored)
	if c != None {
		sum = crc32.Update(sum, []byte{byte(c)})
	}
	return sum
}

// Options control how a payload is framed
type Options struct {
	Redundant   bool
	Compression Compression
}

// Encode frames payload. The result is the header, the redundant header copy
// if requested, and the stored payload. No padding is added.
func Encode(payload []byte, opts Options) ([]byte, error) {
	stored, err := compress(payload, opts.Compression)
	if err != nil {
		return nil, err
	}
	if uint64(len(stored)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(stored))
	}

	h := Header{
		Flags:    uint8(opts.Compression) << compressionShift,
		Length:   uint32(len(stored)),
		Checksum: checksum(stored, opts.Compression),
	}
	if opts.Redundant {
		h.Flags |= flagRedundant
	}

	hb, err := h.MarshalBinary()
	if err != nil {
		return nil, err
	}

	b := new(bytes.Buffer)
	b.Grow(h.PayloadOffset() + len(stored))
	b.Write(hb)
	if opts.Redundant {
		b.Write(hb)
	}
	b.Write(stored)

	return b.Bytes(), nil
}

// Decode locates a valid header in buf and returns the original payload.
// Trailing bytes beyond the payload, such as canvas padding, are ignored.
func Decode(buf []byte) ([]byte, error) {
	_, _, payload, err := locate(buf)
	if err != nil {
		return nil, err
	}
	return payload, nil
}
