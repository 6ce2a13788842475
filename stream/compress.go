package stream

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

var errIncompressible = errors.New("stream: payload is incompressible")

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("stream: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("stream: zstd decoder initialization failed: " + err.Error())
	}
}

// compress returns the stored form of data. errIncompressible means the
// caller should store data as is.
func compress(data []byte, enc Encoding) ([]byte, error) {
	switch enc {
	case EncodingNone:
		return data, nil
	case EncodingZstd:
		out := zstdEncoder.EncodeAll(data, nil)
		if len(out) >= len(data) {
			return nil, errIncompressible
		}
		return out, nil
	case EncodingLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if n == 0 || n >= len(data) {
			return nil, errIncompressible
		}
		return dst[:n], nil
	default:
		return nil, fmt.Errorf("stream: unsupported encoding %s", enc)
	}
}

// decompress reverses compress. raw is the uncompressed size from the
// frame header.
func decompress(stored []byte, enc Encoding, raw int) ([]byte, error) {
	switch enc {
	case EncodingNone:
		return stored, nil
	case EncodingZstd:
		out, err := zstdDecoder.DecodeAll(stored, make([]byte, 0, raw))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(out) != raw {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(out), raw)
		}
		return out, nil
	case EncodingLZ4:
		out := make([]byte, raw)
		n, err := lz4.UncompressBlock(stored, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if n != raw {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", n, raw)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("stream: unsupported encoding %s", enc)
	}
}
