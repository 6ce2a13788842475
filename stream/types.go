// Package stream moves ESON documents through io.Reader and io.Writer.
//
// Load and Dump read or write a single document. The frame transport
// carries a sequence of documents, one per frame:
//
//	@frame{v=1 seq=N len=N [enc=zstd|lz4 raw=N] [crc=XXXXXXXX] [hash=blake3:HEX] [final=true]}\n
//	<len payload bytes>\n
//
// A payload is always one complete document, optionally compressed. The
// CRC-32 covers the stored (possibly compressed) bytes. The hash is the
// BLAKE3-256 of the canonical encoding of the decoded document, see
// DocumentHash.
package stream

import (
	"errors"
	"fmt"
)

// Version is the frame format version.
const Version uint8 = 1

// MaxPayloadSize is the default maximum stored payload size (64 MiB).
const MaxPayloadSize = 64 * 1024 * 1024

// Encoding is the compression applied to a stored payload.
type Encoding uint8

const (
	EncodingNone Encoding = iota
	EncodingZstd
	EncodingLZ4
)

// String returns the header name of the encoding.
func (e Encoding) String() string {
	switch e {
	case EncodingNone:
		return "none"
	case EncodingZstd:
		return "zstd"
	case EncodingLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", e)
	}
}

// ParseEncoding parses an encoding name as written by String.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "none", "":
		return EncodingNone, nil
	case "zstd":
		return EncodingZstd, nil
	case "lz4":
		return EncodingLZ4, nil
	default:
		return 0, fmt.Errorf("stream: unknown encoding %q", s)
	}
}

// Frame is one document on the wire. Payload always holds the
// uncompressed document text.
type Frame struct {
	Version  uint8
	Seq      uint64
	Encoding Encoding // encoding the payload was stored with
	Payload  []byte

	CRC   *uint32   // CRC-32 of the stored bytes (nil if not present)
	Hash  *[32]byte // DocumentHash of the payload (nil if not present)
	Final bool      // no frames follow
}

var (
	// ErrSequence is returned for a frame whose seq does not increase.
	ErrSequence = errors.New("stream: sequence out of order")
	// ErrAfterFinal is returned for a frame that follows a final frame.
	ErrAfterFinal = errors.New("stream: frame after final frame")
)

// ParseError reports a malformed frame header or payload.
type ParseError struct {
	Reason string
	Seq    uint64
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("stream: %s (seq %d)", e.Reason, e.Seq)
}

// CRCMismatchError is returned when CRC verification fails.
type CRCMismatchError struct {
	Seq      uint64
	Expected uint32
	Got      uint32
}

func (e *CRCMismatchError) Error() string {
	return fmt.Sprintf("stream: CRC mismatch in frame %d: expected %08x, got %08x", e.Seq, e.Expected, e.Got)
}

// HashMismatchError is returned when the decoded document does not hash
// to the value in the frame header.
type HashMismatchError struct {
	Seq      uint64
	Expected [32]byte
	Got      [32]byte
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("stream: document hash mismatch in frame %d: expected %s, got %s",
		e.Seq, HashToHex(e.Expected), HashToHex(e.Got))
}
