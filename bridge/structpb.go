package bridge

import (
	"math"
	"sort"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Neumenon/eson/eson"
)

// Keys of the object form of a tag.
const (
	TagKey   = "#tag"
	ValueKey = "value"
)

// StructPBOptions configures the protobuf bridge.
type StructPBOptions struct {
	// TagsAsObjects spells tags out as {"#tag": path, "value": inner}
	// instead of rejecting them, and turns such objects back into tags.
	TagsAsObjects bool
}

// ToStructPB converts v to a protobuf Value. Numbers become doubles, so
// integers beyond ±2^53 and non-finite floats are value errors.
func ToStructPB(v *eson.Value, opts StructPBOptions) (*structpb.Value, error) {
	return toPB(v, opts, 0)
}

func toPB(v *eson.Value, opts StructPBOptions, depth int) (*structpb.Value, error) {
	if depth > eson.DefaultMaxDepth {
		return nil, depthErr()
	}
	switch v.Type() {
	case eson.TypeNull:
		return structpb.NewNullValue(), nil
	case eson.TypeBool:
		b, _ := v.AsBool()
		return structpb.NewBoolValue(b), nil
	case eson.TypeInt:
		n, err := v.AsInt()
		if err != nil || n > maxSafeInt || n < -maxSafeInt {
			big, _ := v.AsBigInt()
			return nil, &eson.Error{Kind: eson.KindValue, Detail: "integer " + big.String() + " does not fit a protobuf double"}
		}
		return structpb.NewNumberValue(float64(n)), nil
	case eson.TypeFloat:
		f, _ := v.AsFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &eson.Error{Kind: eson.KindValue, Cause: eson.ErrNonFinite}
		}
		return structpb.NewNumberValue(f), nil
	case eson.TypeStr:
		s, _ := v.AsStr()
		return structpb.NewStringValue(s), nil
	case eson.TypeArray:
		items, _ := v.AsArray()
		list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(items))}
		for _, item := range items {
			pv, err := toPB(item, opts, depth+1)
			if err != nil {
				return nil, err
			}
			list.Values = append(list.Values, pv)
		}
		return structpb.NewListValue(list), nil
	case eson.TypeObject:
		members, _ := v.AsObject()
		st := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(members))}
		for _, m := range members {
			pv, err := toPB(m.Value, opts, depth+1)
			if err != nil {
				return nil, err
			}
			st.Fields[m.Key] = pv
		}
		return structpb.NewStructValue(st), nil
	case eson.TypeTag:
		path, inner, _ := v.AsTag()
		if !opts.TagsAsObjects {
			return nil, typeErr("tag %s has no protobuf form", path)
		}
		pv, err := toPB(inner, opts, depth+1)
		if err != nil {
			return nil, err
		}
		return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			TagKey:   structpb.NewStringValue(path),
			ValueKey: pv,
		}}), nil
	case eson.TypeOpaque:
		plain, err := materialize(v)
		if err != nil {
			return nil, err
		}
		return toPB(plain, opts, depth)
	default:
		return nil, typeErr("value of type %s has no protobuf form", v.Type())
	}
}

// FromStructPB converts a protobuf Value. Struct fields come back in
// sorted key order. Integral numbers within ±2^53 become Int.
func FromStructPB(pv *structpb.Value, opts StructPBOptions) (*eson.Value, error) {
	return fromPB(pv, opts, 0)
}

func fromPB(pv *structpb.Value, opts StructPBOptions, depth int) (*eson.Value, error) {
	if depth > eson.DefaultMaxDepth {
		return nil, depthErr()
	}
	switch k := pv.GetKind().(type) {
	case nil, *structpb.Value_NullValue:
		return eson.Null(), nil
	case *structpb.Value_BoolValue:
		return eson.Bool(k.BoolValue), nil
	case *structpb.Value_NumberValue:
		f := k.NumberValue
		if f == math.Trunc(f) && f >= -maxSafeInt && f <= maxSafeInt {
			return eson.Int(int64(f)), nil
		}
		return eson.Float(f), nil
	case *structpb.Value_StringValue:
		return eson.Str(k.StringValue), nil
	case *structpb.Value_ListValue:
		values := k.ListValue.GetValues()
		items := make([]*eson.Value, 0, len(values))
		for _, c := range values {
			item, err := fromPB(c, opts, depth+1)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return eson.Array(items...), nil
	case *structpb.Value_StructValue:
		fields := k.StructValue.GetFields()
		if opts.TagsAsObjects {
			if path, inner, ok := tagObject(fields); ok {
				v, err := fromPB(inner, opts, depth+1)
				if err != nil {
					return nil, err
				}
				return eson.NewTag(path, v), nil
			}
		}
		keys := make([]string, 0, len(fields))
		for key := range fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		obj := eson.Object()
		for _, key := range keys {
			v, err := fromPB(fields[key], opts, depth+1)
			if err != nil {
				return nil, err
			}
			obj.Set(key, v)
		}
		return obj, nil
	default:
		return nil, typeErr("unsupported protobuf value kind %T", k)
	}
}

func tagObject(fields map[string]*structpb.Value) (string, *structpb.Value, bool) {
	if len(fields) != 2 {
		return "", nil, false
	}
	inner, ok := fields[ValueKey]
	if !ok {
		return "", nil, false
	}
	sv, ok := fields[TagKey].GetKind().(*structpb.Value_StringValue)
	if !ok || !eson.ValidPath(sv.StringValue) {
		return "", nil, false
	}
	return sv.StringValue, inner, true
}
