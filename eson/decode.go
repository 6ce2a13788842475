package eson

import (
	"strings"
	"sync"
)

// Decoder parses ESON text. A Decoder is immutable and safe for
// concurrent use.
type Decoder struct {
	opts     DecodeOptions
	strategy Strategy
	maxDepth int
}

// NewDecoder creates a decoder for opts.
func NewDecoder(opts DecodeOptions) *Decoder {
	d := &Decoder{opts: opts, strategy: opts.TagStrategy, maxDepth: opts.MaxDepth}
	if d.strategy == nil {
		reg := opts.Registry
		if reg == nil {
			reg = DefaultRegistry()
		}
		d.strategy = RegistryStrategy(reg, opts.TagFallback)
	}
	if d.maxDepth <= 0 {
		d.maxDepth = DefaultMaxDepth
	}
	return d
}

// Decode parses a complete document. Whitespace may surround the value;
// anything else after it is an error.
func (d *Decoder) Decode(text string) (*Value, error) {
	if strings.HasPrefix(text, "\ufeff") {
		pos := positionAt(text, 0)
		return nil, &Error{Kind: KindValue, Detail: "Unexpected UTF-8 BOM (decode using utf-8-sig)", Cause: ErrBOM, Pos: &pos}
	}
	s := newScanner(d, text)
	defer s.release()

	v, end, err := s.value(s.skipSpace(0))
	if err != nil {
		return nil, err
	}
	if end = s.skipSpace(end); end != len(text) {
		e := s.syntaxErr("Extra data", end)
		e.Cause = ErrExtraData
		return nil, e
	}
	return v, nil
}

// DecodePrefix parses one value starting exactly at start and returns it
// with the offset of the first byte after it. Leading whitespace is not
// skipped and trailing text is left alone.
func (d *Decoder) DecodePrefix(text string, start int) (*Value, int, error) {
	if start < 0 {
		return nil, 0, &SyntaxError{Msg: "start offset out of range", Pos: positionAt(text, 0)}
	}
	if start > len(text) {
		return nil, 0, &SyntaxError{Msg: "start offset out of range", Pos: positionAt(text, len(text))}
	}
	s := newScanner(d, text)
	defer s.release()
	return s.value(start)
}

// ============================================================
// Package-level API
// ============================================================

var (
	defaultDecoder     *Decoder
	defaultDecoderOnce sync.Once
	defaultEncoder     *Encoder
	defaultEncoderOnce sync.Once
)

func cachedDecoder() *Decoder {
	defaultDecoderOnce.Do(func() {
		defaultDecoder = NewDecoder(DecodeOptions{})
	})
	return defaultDecoder
}

func cachedEncoder() *Encoder {
	defaultEncoderOnce.Do(func() {
		defaultEncoder = NewEncoder(DefaultEncodeOptions())
	})
	return defaultEncoder
}

// Decode parses text with the default options.
func Decode(text string) (*Value, error) {
	return cachedDecoder().Decode(text)
}

// DecodeWithOptions parses text with opts.
func DecodeWithOptions(text string, opts DecodeOptions) (*Value, error) {
	if opts.isDefault() {
		return cachedDecoder().Decode(text)
	}
	return NewDecoder(opts).Decode(text)
}

// Encode writes v with DefaultEncodeOptions.
func Encode(v any) (string, error) {
	return cachedEncoder().Encode(v)
}

// EncodeWithOptions writes v with opts.
func EncodeWithOptions(v any, opts EncodeOptions) (string, error) {
	if opts.isDefault() {
		return cachedEncoder().Encode(v)
	}
	return NewEncoder(opts).Encode(v)
}

// EncodeIndent writes v with the default options, pretty printed with
// indent per level.
func EncodeIndent(v any, indent string) (string, error) {
	opts := DefaultEncodeOptions()
	opts.Pretty = true
	opts.Indent = indent
	return NewEncoder(opts).Encode(v)
}
