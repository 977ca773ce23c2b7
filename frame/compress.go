package frame

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies how the stored payload is compressed. The value is
// kept in bits 1 and 2 of the header flags.
type Compression uint8

const (
	// None stores the payload verbatim
	None Compression = iota
	// LZ4 stores the payload as an LZ4 frame
	LZ4
	// Zstd stores the payload as a zstd frame
	Zstd
)

// maxDecodedSize bounds zstd window allocation while decoding
const maxDecodedSize = 1 << 32

func (c Compression) valid() bool {
	return c <= Zstd
}

// String returns the name of the compression
func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression returns the Compression matching name
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return None, fmt.Errorf("unknown compression %q", name)
	}
}

// The zstd encoder and decoder are safe for concurrent use
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	if zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault)); err != nil {
		panic("frame: zstd encoder: " + err.Error())
	}
	if zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize)); err != nil {
		panic("frame: zstd decoder: " + err.Error())
	}
}

func compress(payload []byte, c Compression) ([]byte, error) {
	switch c {
	case None:
		return payload, nil
	case LZ4:
		b := new(bytes.Buffer)
		w := lz4.NewWriter(b)
		if _, err := w.Write(payload); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		return b.Bytes(), nil
	case Zstd:
		return zstdEncoder.EncodeAll(payload, nil), nil
	default:
		return nil, fmt.Errorf("unsupported compression %s", c)
	}
}

func decompress(stored []byte, c Compression) ([]byte, error) {
	switch c {
	case None:
		return append([]byte{}, stored...), nil
	case LZ4:
		b, err := io.ReadAll(lz4.NewReader(bytes.NewReader(stored)))
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		return b, nil
	case Zstd:
		b, err := zstdDecoder.DecodeAll(stored, make([]byte, 0, len(stored)))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported compression %s", c)
	}
}
