// Package eson implements ESON, a strict superset of JSON with tags.
//
// Every JSON document is an ESON document and, with the default options,
// encodes back to the same bytes a standard JSON encoder produces. ESON
// adds one literal:
//
//	#path value
//
// where path is one or more [A-Za-z0-9_]+ segments joined by '/', followed
// by at least one whitespace character and any value, tags included. Tags
// annotate a value with a namespaced identifier that drives custom decoding
// and encoding of types JSON cannot represent.
//
// # Example
//
//	[#core/datetime "2019-01-20T04:47:47", {"id": #app/user 17}]
//
// # Decoding
//
// Decode turns text into a *Value tree. Each tag is passed to a Strategy
// which decides what takes its place:
//   - RegistryStrategy looks the path up in a Registry (the default)
//   - StructStrategy keeps the tag as a TypeTag value
//   - IgnoreStrategy drops the tag and keeps the inner value
//   - ErrorStrategy rejects the tag
//
// # Encoding
//
// Encode accepts a *Value or plain Go data. Application types become tags
// through the TagMarshaler interface, a per-type TagEncoder in the
// Registry, or the EncodeOptions.Default hook.
//
// # Registry
//
//	reg := eson.NewRegistry()
//	reg.Register("app", eson.Namespace{})
//	reg.Register("app/user", eson.TagHandler(func(inner *eson.Value) (*eson.Value, error) {
//	    id, err := inner.AsInt()
//	    if err != nil {
//	        return nil, err
//	    }
//	    return eson.Opaque(User{ID: id}), nil
//	}))
//
// The core namespace of DefaultRegistry is reserved for the tags bundled
// in package builtin.
package eson
