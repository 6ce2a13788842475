package stream

import (
	"encoding/hex"
	"hash/crc32"

	"github.com/zeebo/blake3"

	"github.com/Neumenon/eson/eson"
)

// ComputeCRC computes CRC-32 IEEE of the given bytes.
func ComputeCRC(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// CanonicalOptions are the encode options of the canonical form: sorted
// keys, compact separators, ASCII only. reg resolves Go types to tags.
func CanonicalOptions(reg *eson.Registry) eson.EncodeOptions {
	opts := eson.DefaultEncodeOptions()
	opts.SortKeys = true
	opts.Separators = eson.Separators{Item: ",", Key: ":"}
	opts.Registry = reg
	return opts
}

// DocumentHash is the BLAKE3-256 digest of the canonical encoding of v.
// Documents that differ only in object key order or whitespace hash
// the same.
func DocumentHash(v any, reg *eson.Registry) ([32]byte, error) {
	text, err := eson.EncodeWithOptions(v, CanonicalOptions(reg))
	if err != nil {
		return [32]byte{}, err
	}
	return blake3.Sum256([]byte(text)), nil
}

// HashToHex converts a hash to lowercase hex.
func HashToHex(h [32]byte) string {
	return hex.EncodeToString(h[:])
}

// HexToHash parses a 64-character hex string.
func HexToHash(s string) ([32]byte, bool) {
	var h [32]byte
	if len(s) != 64 {
		return h, false
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, false
	}
	return h, true
}
