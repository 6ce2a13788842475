// Package bridge converts ESON value trees to and from other data models.
//
// YAML (gopkg.in/yaml.v3) carries tags natively: the ESON tag
// #app/id 17 is the YAML local tag !app/id 17. Protobuf's structpb has no
// tags; they are rejected or, with StructPBOptions.TagsAsObjects, spelled
// out as {"#tag": path, "value": inner}.
package bridge

import (
	"fmt"

	"github.com/Neumenon/eson/eson"
)

// maxSafeInt is the largest integer a float64 holds exactly.
const maxSafeInt = 1 << 53

// materialize turns an opaque application object back into plain data by
// encoding it with the default registry and decoding the text with tags
// kept as tags.
func materialize(v *eson.Value) (*eson.Value, error) {
	x, _ := v.AsOpaque()
	text, err := eson.Encode(x)
	if err != nil {
		return nil, err
	}
	return eson.DecodeWithOptions(text, eson.DecodeOptions{TagStrategy: eson.StructStrategy})
}

func typeErr(format string, args ...any) error {
	return &eson.Error{Kind: eson.KindType, Detail: fmt.Sprintf(format, args...)}
}

func depthErr() error {
	return &eson.Error{Kind: eson.KindValue, Detail: "maximum nesting depth exceeded", Cause: eson.ErrMaxDepth}
}
