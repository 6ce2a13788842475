package eson

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
)

// Type represents ESON value types.
type Type uint8

const (
	TypeNull Type = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeStr
	TypeArray
	TypeObject
	TypeTag    // #path value
	TypeOpaque // application object produced by a tag handler or hook
)

// String returns the type name.
func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeStr:
		return "str"
	case TypeArray:
		return "array"
	case TypeObject:
		return "object"
	case TypeTag:
		return "tag"
	case TypeOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Value represents an ESON value. A nil *Value reads as null.
type Value struct {
	typ Type

	// Scalar values (only one valid based on typ)
	boolVal  bool
	intVal   int64
	bigVal   *big.Int // set only when the integer does not fit in int64
	floatVal float64
	strVal   string // string payload, or the path of a tag

	// Container values
	listVal []*Value
	objVal  []Member
	index   map[string]int // key to position in objVal, built once the object grows

	// Tag payload
	inner *Value

	// Opaque payload
	opaque any
}

// Member is a key/value pair of an object.
type Member struct {
	Key   string
	Value *Value
}

// Pair creates a Member for use in Object construction.
func Pair(key string, value *Value) Member {
	return Member{Key: key, Value: value}
}

// Tagged is the native Go form of a tag, as returned by Interface.
// The encoder writes a Tagged as a tag literal.
type Tagged struct {
	Path  string
	Value any
}

// indexThreshold is the object size from which key lookups go through a map.
const indexThreshold = 8

// ============================================================
// Constructors
// ============================================================

// Null creates a null value.
func Null() *Value {
	return &Value{typ: TypeNull}
}

// Bool creates a boolean value.
func Bool(v bool) *Value {
	return &Value{typ: TypeBool, boolVal: v}
}

// Int creates an integer value.
func Int(v int64) *Value {
	return &Value{typ: TypeInt, intVal: v}
}

// BigInt creates an integer value of arbitrary precision.
// Values that fit in an int64 are stored as such.
func BigInt(v *big.Int) *Value {
	if v.IsInt64() {
		return Int(v.Int64())
	}
	return &Value{typ: TypeInt, bigVal: new(big.Int).Set(v)}
}

// Float creates a float value.
func Float(v float64) *Value {
	return &Value{typ: TypeFloat, floatVal: v}
}

// Str creates a string value.
func Str(v string) *Value {
	return &Value{typ: TypeStr, strVal: v}
}

// Array creates an array value.
func Array(values ...*Value) *Value {
	return &Value{typ: TypeArray, listVal: values}
}

// Object creates an object value from key/value pairs.
// A repeated key overwrites the earlier value in its original position.
func Object(members ...Member) *Value {
	v := &Value{typ: TypeObject, objVal: make([]Member, 0, len(members))}
	for _, m := range members {
		v.Set(m.Key, m.Value)
	}
	return v
}

// NewTag creates a tag value wrapping inner.
func NewTag(path string, inner *Value) *Value {
	return &Value{typ: TypeTag, strVal: path, inner: inner}
}

// Opaque wraps an application object so it can live in a value tree.
func Opaque(x any) *Value {
	return &Value{typ: TypeOpaque, opaque: x}
}

// ============================================================
// Accessors
// ============================================================

// Type returns the value type.
func (v *Value) Type() Type {
	if v == nil {
		return TypeNull
	}
	return v.typ
}

// IsNull returns true if this is a null value.
func (v *Value) IsNull() bool {
	return v == nil || v.typ == TypeNull
}

func (v *Value) expect(t Type) error {
	if v == nil {
		if t == TypeNull {
			return nil
		}
		return fmt.Errorf("eson: expected %s, got null", t)
	}
	if v.typ != t {
		return fmt.Errorf("eson: expected %s, got %s", t, v.typ)
	}
	return nil
}

// AsBool returns the boolean value.
func (v *Value) AsBool() (bool, error) {
	if err := v.expect(TypeBool); err != nil {
		return false, err
	}
	return v.boolVal, nil
}

// AsInt returns the integer value. It fails for integers beyond 64 bits;
// use AsBigInt for those.
func (v *Value) AsInt() (int64, error) {
	if err := v.expect(TypeInt); err != nil {
		return 0, err
	}
	if v.bigVal != nil {
		return 0, fmt.Errorf("eson: integer %s overflows int64", v.bigVal)
	}
	return v.intVal, nil
}

// AsBigInt returns the integer value with arbitrary precision.
func (v *Value) AsBigInt() (*big.Int, error) {
	if err := v.expect(TypeInt); err != nil {
		return nil, err
	}
	if v.bigVal != nil {
		return new(big.Int).Set(v.bigVal), nil
	}
	return big.NewInt(v.intVal), nil
}

// AsFloat returns the float value.
func (v *Value) AsFloat() (float64, error) {
	if err := v.expect(TypeFloat); err != nil {
		return 0, err
	}
	return v.floatVal, nil
}

// AsStr returns the string value.
func (v *Value) AsStr() (string, error) {
	if err := v.expect(TypeStr); err != nil {
		return "", err
	}
	return v.strVal, nil
}

// AsArray returns the array elements.
func (v *Value) AsArray() ([]*Value, error) {
	if err := v.expect(TypeArray); err != nil {
		return nil, err
	}
	return v.listVal, nil
}

// AsObject returns the object members in iteration order.
// The returned slice must not be used to change keys.
func (v *Value) AsObject() ([]Member, error) {
	if err := v.expect(TypeObject); err != nil {
		return nil, err
	}
	return v.objVal, nil
}

// AsTag returns the path and inner value of a tag.
func (v *Value) AsTag() (string, *Value, error) {
	if err := v.expect(TypeTag); err != nil {
		return "", nil, err
	}
	return v.strVal, v.inner, nil
}

// AsOpaque returns the wrapped application object.
func (v *Value) AsOpaque() (any, error) {
	if err := v.expect(TypeOpaque); err != nil {
		return nil, err
	}
	return v.opaque, nil
}

// Len returns the length of an array or object.
func (v *Value) Len() int {
	if v == nil {
		return 0
	}
	switch v.typ {
	case TypeArray:
		return len(v.listVal)
	case TypeObject:
		return len(v.objVal)
	default:
		return 0
	}
}

// Get returns a member value by key, or nil when absent.
func (v *Value) Get(key string) *Value {
	if v == nil || v.typ != TypeObject {
		return nil
	}
	if i, ok := v.find(key); ok {
		return v.objVal[i].Value
	}
	return nil
}

// Index returns the i-th element of an array.
func (v *Value) Index(i int) (*Value, error) {
	if v == nil || v.typ != TypeArray {
		return nil, fmt.Errorf("eson: not an array")
	}
	if i < 0 || i >= len(v.listVal) {
		return nil, fmt.Errorf("eson: index %d out of bounds (len=%d)", i, len(v.listVal))
	}
	return v.listVal[i], nil
}

func (v *Value) find(key string) (int, bool) {
	if v.index != nil {
		i, ok := v.index[key]
		return i, ok
	}
	for i := range v.objVal {
		if v.objVal[i].Key == key {
			return i, true
		}
	}
	return 0, false
}

// ============================================================
// Mutators
// ============================================================

// Set sets a member on an object. An existing key keeps its position.
func (v *Value) Set(key string, val *Value) {
	if v.typ != TypeObject {
		panic("eson: cannot set on non-object")
	}
	if i, ok := v.find(key); ok {
		v.objVal[i].Value = val
		return
	}
	v.objVal = append(v.objVal, Member{Key: key, Value: val})
	switch {
	case v.index != nil:
		v.index[key] = len(v.objVal) - 1
	case len(v.objVal) >= indexThreshold:
		v.index = make(map[string]int, len(v.objVal)*2)
		for i, m := range v.objVal {
			v.index[m.Key] = i
		}
	}
}

// Append adds a value to an array.
func (v *Value) Append(val *Value) {
	if v.typ != TypeArray {
		panic("eson: cannot append to non-array")
	}
	v.listVal = append(v.listVal, val)
}

// ============================================================
// Native conversion
// ============================================================

// Interface converts the value to plain Go data: nil, bool, int64 or
// *big.Int, float64, string, []any, map[string]any, Tagged, or the
// opaque payload. Object order is not preserved by the map.
func (v *Value) Interface() any {
	if v == nil {
		return nil
	}
	switch v.typ {
	case TypeBool:
		return v.boolVal
	case TypeInt:
		if v.bigVal != nil {
			return new(big.Int).Set(v.bigVal)
		}
		return v.intVal
	case TypeFloat:
		return v.floatVal
	case TypeStr:
		return v.strVal
	case TypeArray:
		out := make([]any, len(v.listVal))
		for i, e := range v.listVal {
			out[i] = e.Interface()
		}
		return out
	case TypeObject:
		out := make(map[string]any, len(v.objVal))
		for _, m := range v.objVal {
			out[m.Key] = m.Value.Interface()
		}
		return out
	case TypeTag:
		return Tagged{Path: v.strVal, Value: v.inner.Interface()}
	case TypeOpaque:
		return v.opaque
	default:
		return nil
	}
}

// String returns the value as ESON text using the default encoder.
func (v *Value) String() string {
	s, err := Encode(v)
	if err != nil {
		return fmt.Sprintf("<%s: %v>", v.Type(), err)
	}
	return s
}

// ============================================================
// Equality
// ============================================================

// Equal reports whether a and b hold the same structure. Object member
// order is significant, NaN equals NaN, and opaque payloads are compared
// with reflect.DeepEqual.
func Equal(a, b *Value) bool {
	if a.Type() != b.Type() {
		return false
	}
	if a.IsNull() {
		return true
	}
	switch a.typ {
	case TypeBool:
		return a.boolVal == b.boolVal
	case TypeInt:
		if a.bigVal != nil || b.bigVal != nil {
			x, _ := a.AsBigInt()
			y, _ := b.AsBigInt()
			return x.Cmp(y) == 0
		}
		return a.intVal == b.intVal
	case TypeFloat:
		if math.IsNaN(a.floatVal) && math.IsNaN(b.floatVal) {
			return true
		}
		return a.floatVal == b.floatVal
	case TypeStr:
		return a.strVal == b.strVal
	case TypeArray:
		if len(a.listVal) != len(b.listVal) {
			return false
		}
		for i := range a.listVal {
			if !Equal(a.listVal[i], b.listVal[i]) {
				return false
			}
		}
		return true
	case TypeObject:
		if len(a.objVal) != len(b.objVal) {
			return false
		}
		for i := range a.objVal {
			if a.objVal[i].Key != b.objVal[i].Key || !Equal(a.objVal[i].Value, b.objVal[i].Value) {
				return false
			}
		}
		return true
	case TypeTag:
		return a.strVal == b.strVal && Equal(a.inner, b.inner)
	case TypeOpaque:
		return reflect.DeepEqual(a.opaque, b.opaque)
	}
	return false
}
