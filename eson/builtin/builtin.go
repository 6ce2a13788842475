// Package builtin provides the tags of the reserved core namespace.
//
// Importing the package installs them into eson.DefaultRegistry:
//
//	import _ "github.com/Neumenon/eson/eson/builtin"
//
// Use Install to add them to another registry.
package builtin

import "github.com/Neumenon/eson/eson"

// DateTimeTag is the tag path of timestamps.
const DateTimeTag = eson.CoreNamespace + "/datetime"

func init() {
	if err := Install(eson.DefaultRegistry()); err != nil {
		panic("builtin: install into default registry: " + err.Error())
	}
}

// Install registers the core namespace (if missing), the tag handlers of
// this package and the encoders for their Go types in reg.
func Install(reg *eson.Registry) error {
	if !reg.Has(eson.CoreNamespace) {
		if err := reg.Register(eson.CoreNamespace, eson.Namespace{}); err != nil {
			return err
		}
	}
	if err := reg.Register(DateTimeTag, eson.TagHandler(decodeDateTime)); err != nil {
		return err
	}
	if err := eson.RegisterType(reg, EncodeDateTime); err != nil {
		reg.Delete(DateTimeTag)
		return err
	}
	return nil
}
