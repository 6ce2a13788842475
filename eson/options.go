package eson

import "strings"

// Separators overrides the item and key separators. An empty field keeps
// its default: ", " (or "," when pretty) between items and ": " after keys.
type Separators struct {
	Item string
	Key  string
}

// EncodeOptions controls ESON encoding.
type EncodeOptions struct {
	// SkipKeys drops Go map keys that cannot be written as object keys
	// instead of failing.
	SkipKeys bool

	// EnsureASCII escapes every non-ASCII code point.
	EnsureASCII bool

	// CheckCircular detects containers that contain themselves. Without
	// it a cycle runs into MaxDepth.
	CheckCircular bool

	// AllowNaN writes NaN and the infinities as bare constants. Without it
	// they are a value error.
	AllowNaN bool

	// Pretty puts every element on its own line, indented by Indent per
	// level. A non-empty Indent implies Pretty.
	Pretty bool
	Indent string

	Separators Separators

	// SortKeys writes object members in key order. Go maps are always
	// written in key order.
	SortKeys bool

	// Default is called for Go values the encoder cannot write otherwise.
	Default func(v any) (*Value, error)

	// Registry supplies per-type tag encoders. Nil means DefaultRegistry.
	Registry *Registry

	// MaxDepth caps nesting. Zero means DefaultMaxDepth.
	MaxDepth int
}

// DefaultEncodeOptions returns options producing output identical to a
// standard JSON encoder for plain JSON data.
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{
		EnsureASCII:   true,
		CheckCircular: true,
		AllowNaN:      true,
	}
}

// WithIndent returns a copy of o that pretty prints with n spaces per level.
func (o EncodeOptions) WithIndent(n int) EncodeOptions {
	o.Pretty = true
	o.Indent = strings.Repeat(" ", n)
	return o
}

func (o *EncodeOptions) isDefault() bool {
	return !o.SkipKeys && o.EnsureASCII && o.CheckCircular && o.AllowNaN &&
		!o.Pretty && o.Indent == "" && o.Separators == (Separators{}) &&
		!o.SortKeys && o.Default == nil &&
		(o.Registry == nil || o.Registry == DefaultRegistry()) &&
		(o.MaxDepth == 0 || o.MaxDepth == DefaultMaxDepth)
}

// DecodeOptions controls ESON decoding. The zero value decodes tags
// through DefaultRegistry and rejects unregistered ones.
type DecodeOptions struct {
	// ObjectHook replaces every decoded object with its result.
	ObjectHook func(obj *Value) (*Value, error)

	// ObjectPairsHook receives the members of every object in source
	// order, duplicates included. It takes precedence over ObjectHook.
	ObjectPairsHook func(pairs []Member) (*Value, error)

	// ParseInt, ParseFloat and ParseConstant receive number literals and
	// the NaN/Infinity/-Infinity constants as written.
	ParseInt      func(lit string) (*Value, error)
	ParseFloat    func(lit string) (*Value, error)
	ParseConstant func(name string) (*Value, error)

	// TagStrategy decodes every tag. When nil, tags are dispatched to
	// Registry and unregistered paths go to TagFallback.
	TagStrategy Strategy
	Registry    *Registry
	TagFallback Strategy

	// MaxDepth caps nesting. Zero means DefaultMaxDepth.
	MaxDepth int
}

func (o *DecodeOptions) isDefault() bool {
	return o.ObjectHook == nil && o.ObjectPairsHook == nil &&
		o.ParseInt == nil && o.ParseFloat == nil && o.ParseConstant == nil &&
		o.TagStrategy == nil && o.TagFallback == nil &&
		(o.Registry == nil || o.Registry == DefaultRegistry()) &&
		(o.MaxDepth == 0 || o.MaxDepth == DefaultMaxDepth)
}
