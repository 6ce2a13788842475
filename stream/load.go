package stream

import (
	"fmt"
	"io"

	"github.com/Neumenon/eson/eson"
)

// Load reads r to the end and decodes the text as one document.
func Load(r io.Reader, opts eson.DecodeOptions) (*eson.Value, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return eson.DecodeWithOptions(string(data), opts)
}

// Dump encodes v and writes the text to w. Nothing is written when
// encoding fails.
func Dump(w io.Writer, v any, opts eson.EncodeOptions) error {
	text, err := eson.EncodeWithOptions(v, opts)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, text); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}
