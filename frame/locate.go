package frame

import (
	"bytes"
	"errors"
	"fmt"
)

// candidates lists the offsets a header copy may occupy, in the order they
// are tried. The copy at index i > 0 only exists in a redundant frame.
var candidates = [...]int{0, HeaderSize}

var errOverrun = errors.New("frame: payload overruns buffer")

// validate parses the header copy at offset and checks it against the
// payload it describes, returning the decompressed payload. A copy is only
// accepted once its payload has been decompressed.
func validate(buf []byte, offset int, redundantSlot bool) (*Header, []byte, error) {
	if len(buf) < offset+HeaderSize {
		return nil, nil, errShortHeader
	}

	h := new(Header)
	if err := h.UnmarshalBinary(buf[offset:]); err != nil {
		return nil, nil, err
	}
	if redundantSlot && !h.Redundant() {
		return nil, nil, errBadFlags
	}

	start := h.PayloadOffset()
	if len(buf) < start || uint64(h.Length) > uint64(len(buf)-start) {
		return nil, nil, fmt.Errorf("%w: %d bytes at offset %d, buffer is %d bytes", errOverrun, h.Length, start, len(buf))
	}

	stored := buf[start : start+int(h.Length)]
	if sum := checksum(stored, h.Compression()); sum != h.Checksum {
		return nil, nil, fmt.Errorf("checksum %08x, expected %08x", sum, h.Checksum)
	}

	payload, err := decompress(stored, h.Compression())
	if err != nil {
		return nil, nil, err
	}

	return h, payload, nil
}

// corroborated reports whether buf starts with two identical header copies
// that both claim redundancy. Only then is a length running past the end of
// the buffer trusted as truncation rather than a damaged header.
func corroborated(buf []byte) bool {
	if len(buf) < 2*HeaderSize {
		return false
	}
	var h Header
	if err := h.UnmarshalBinary(buf); err != nil || !h.Redundant() {
		return false
	}
	return bytes.Equal(buf[:HeaderSize], buf[HeaderSize:2*HeaderSize])
}

func locate(buf []byte) (*Header, int, []byte, error) {
	var overrun error
	for i, offset := range candidates {
		h, payload, err := validate(buf, offset, i > 0)
		if err == nil {
			return h, offset, payload, nil
		}
		if errors.Is(err, errOverrun) && overrun == nil {
			overrun = err
		}
	}

	if overrun != nil && corroborated(buf) {
		return nil, 0, nil, fmt.Errorf("%w: %v", ErrTruncated, overrun)
	}

	return nil, 0, nil, ErrCorrupted
}

// Locate finds the first header copy in buf that validates against its
// payload, returning it and the offset it was found at. Each candidate is
// self-describing so a damaged first copy falls through to the second.
func Locate(buf []byte) (*Header, int, error) {
	h, offset, _, err := locate(buf)
	return h, offset, err
}
