package eson

import (
	"encoding/json"
	"math"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"sync"
)

// Encoder serializes values to ESON text. An Encoder is immutable and
// safe for concurrent use.
type Encoder struct {
	opts     EncodeOptions
	reg      *Registry
	pretty   bool
	indent   string
	itemSep  string
	keySep   string
	maxDepth int
}

// NewEncoder creates an encoder for opts. Start from
// DefaultEncodeOptions to keep JSON-compatible behavior.
func NewEncoder(opts EncodeOptions) *Encoder {
	e := &Encoder{
		opts:     opts,
		reg:      opts.Registry,
		pretty:   opts.Pretty || opts.Indent != "",
		indent:   opts.Indent,
		itemSep:  opts.Separators.Item,
		keySep:   opts.Separators.Key,
		maxDepth: opts.MaxDepth,
	}
	if e.reg == nil {
		e.reg = DefaultRegistry()
	}
	if e.itemSep == "" {
		e.itemSep = ", "
		if e.pretty {
			e.itemSep = ","
		}
	}
	if e.keySep == "" {
		e.keySep = ": "
	}
	if e.maxDepth <= 0 {
		e.maxDepth = DefaultMaxDepth
	}
	return e
}

// Encode returns the ESON text for v.
func (enc *Encoder) Encode(v any) (string, error) {
	st := newEncodeState(enc, nil, false)
	defer st.release()
	if err := st.encode(v); err != nil {
		return "", err
	}
	return string(st.buf), nil
}

// Append appends the ESON text for v to dst. On error dst is returned
// unchanged.
func (enc *Encoder) Append(dst []byte, v any) ([]byte, error) {
	n := len(dst)
	st := newEncodeState(enc, dst, true)
	defer st.release()
	if err := st.encode(v); err != nil {
		return st.buf[:n], err
	}
	return st.buf, nil
}

// ============================================================
// Encode state
// ============================================================

// visitKey identifies a Go container on the active path. Slices sharing a
// backing array differ by length.
type visitKey struct {
	ptr uintptr
	len int
}

type encodeState struct {
	enc      *Encoder
	buf      []byte
	borrowed bool // buf belongs to the caller of Append
	depth    int  // nesting counted against MaxDepth, tags and hooks included
	level    int  // indent level, advanced only by arrays and objects
	seen     map[*Value]struct{}
	visiting map[visitKey]struct{}
}

var encodeStatePool = sync.Pool{
	New: func() any { return new(encodeState) },
}

func newEncodeState(enc *Encoder, dst []byte, borrowed bool) *encodeState {
	st := encodeStatePool.Get().(*encodeState)
	st.enc = enc
	st.depth = 0
	st.level = 0
	st.borrowed = borrowed
	if borrowed {
		st.buf = dst
	} else {
		st.buf = st.buf[:0]
	}
	return st
}

func (st *encodeState) release() {
	st.enc = nil
	clear(st.seen)
	clear(st.visiting)
	if st.borrowed || cap(st.buf) > 64<<10 {
		st.buf = nil
	}
	encodeStatePool.Put(st)
}

var (
	tagMarshalerType = reflect.TypeOf((*TagMarshaler)(nil)).Elem()
	bigIntPtrType    = reflect.TypeOf((**big.Int)(nil)).Elem()
	jsonNumberType   = reflect.TypeOf((*json.Number)(nil)).Elem()
)

func (st *encodeState) enter() error {
	st.depth++
	if st.depth > st.enc.maxDepth {
		return valueError(ErrMaxDepth, "maximum nesting depth of %d exceeded", st.enc.maxDepth)
	}
	return nil
}

func (st *encodeState) newline(level int) {
	if !st.enc.pretty {
		return
	}
	st.buf = append(st.buf, '\n')
	for i := 0; i < level; i++ {
		st.buf = append(st.buf, st.enc.indent...)
	}
}

func circularError() *Error {
	return valueError(ErrCircular, "Circular reference detected")
}

func (st *encodeState) markValue(v *Value) error {
	if !st.enc.opts.CheckCircular {
		return nil
	}
	if st.seen == nil {
		st.seen = make(map[*Value]struct{})
	}
	if _, ok := st.seen[v]; ok {
		return circularError()
	}
	st.seen[v] = struct{}{}
	return nil
}

func (st *encodeState) unmarkValue(v *Value) {
	if st.enc.opts.CheckCircular {
		delete(st.seen, v)
	}
}

func (st *encodeState) markVisit(k visitKey) (bool, error) {
	if !st.enc.opts.CheckCircular || k.ptr == 0 {
		return false, nil
	}
	if st.visiting == nil {
		st.visiting = make(map[visitKey]struct{})
	}
	if _, ok := st.visiting[k]; ok {
		return false, circularError()
	}
	st.visiting[k] = struct{}{}
	return true, nil
}

// encode dispatches on the dynamic type of x.
func (st *encodeState) encode(x any) error {
	switch v := x.(type) {
	case *Value:
		return st.value(v)
	case nil:
		st.buf = append(st.buf, "null"...)
		return nil
	case Tagged:
		return st.tag(v.Path, nil, func() error { return st.encode(v.Value) })
	case *Tagged:
		if v == nil {
			st.buf = append(st.buf, "null"...)
			return nil
		}
		return st.tag(v.Path, nil, func() error { return st.encode(v.Value) })
	case bool:
		st.buf = strconv.AppendBool(st.buf, v)
		return nil
	case string:
		st.buf = appendQuoted(st.buf, v, st.enc.opts.EnsureASCII)
		return nil
	case int:
		st.buf = strconv.AppendInt(st.buf, int64(v), 10)
		return nil
	case int64:
		st.buf = strconv.AppendInt(st.buf, v, 10)
		return nil
	case float64:
		return st.float(v)
	}
	return st.reflectValue(reflect.ValueOf(x))
}

func (st *encodeState) float(f float64) error {
	if (math.IsNaN(f) || math.IsInf(f, 0)) && !st.enc.opts.AllowNaN {
		return valueError(ErrNonFinite, "Out of range float values are not ESON compliant: %s", appendFloat(nil, f))
	}
	st.buf = appendFloat(st.buf, f)
	return nil
}

// ============================================================
// Value trees
// ============================================================

func (st *encodeState) value(v *Value) error {
	if v == nil {
		st.buf = append(st.buf, "null"...)
		return nil
	}
	switch v.typ {
	case TypeNull:
		st.buf = append(st.buf, "null"...)
	case TypeBool:
		st.buf = strconv.AppendBool(st.buf, v.boolVal)
	case TypeInt:
		if v.bigVal != nil {
			st.buf = v.bigVal.Append(st.buf, 10)
		} else {
			st.buf = strconv.AppendInt(st.buf, v.intVal, 10)
		}
	case TypeFloat:
		return st.float(v.floatVal)
	case TypeStr:
		st.buf = appendQuoted(st.buf, v.strVal, st.enc.opts.EnsureASCII)
	case TypeArray:
		if len(v.listVal) == 0 {
			st.buf = append(st.buf, "[]"...)
			return nil
		}
		if err := st.markValue(v); err != nil {
			return err
		}
		err := st.array(len(v.listVal), func(i int) error { return st.value(v.listVal[i]) })
		st.unmarkValue(v)
		return err
	case TypeObject:
		if len(v.objVal) == 0 {
			st.buf = append(st.buf, "{}"...)
			return nil
		}
		if err := st.markValue(v); err != nil {
			return err
		}
		members := v.objVal
		if st.enc.opts.SortKeys {
			members = append([]Member(nil), members...)
			sort.SliceStable(members, func(i, j int) bool { return members[i].Key < members[j].Key })
		}
		err := st.object(len(members), func(i int) (string, bool, error) {
			return members[i].Key, true, nil
		}, func(i int) error {
			return st.value(members[i].Value)
		})
		st.unmarkValue(v)
		return err
	case TypeTag:
		return st.tag(v.strVal, v, func() error { return st.value(v.inner) })
	case TypeOpaque:
		return st.encode(v.opaque)
	default:
		return typeError(ErrUnsupportedType, "unknown value type %d", v.typ)
	}
	return nil
}

// tag writes '#path ' followed by the inner value at the same level.
func (st *encodeState) tag(path string, self *Value, inner func() error) error {
	if !ValidPath(path) {
		return valueError(ErrInvalidPath, "invalid tag path %q", path)
	}
	if self != nil {
		if err := st.markValue(self); err != nil {
			return err
		}
		defer st.unmarkValue(self)
	}
	if err := st.enter(); err != nil {
		return err
	}
	st.buf = append(st.buf, '#')
	st.buf = append(st.buf, path...)
	st.buf = append(st.buf, ' ')
	err := inner()
	st.depth--
	return atPath(err, "#"+path)
}

// array writes n elements. The caller handles the empty case.
func (st *encodeState) array(n int, elem func(i int) error) error {
	if err := st.enter(); err != nil {
		return err
	}
	st.level++
	st.buf = append(st.buf, '[')
	st.newline(st.level)
	for i := 0; i < n; i++ {
		if i > 0 {
			st.buf = append(st.buf, st.enc.itemSep...)
			st.newline(st.level)
		}
		if err := elem(i); err != nil {
			return atPath(err, "["+strconv.Itoa(i)+"]")
		}
	}
	st.depth--
	st.level--
	st.newline(st.level)
	st.buf = append(st.buf, ']')
	return nil
}

// object writes n members. key reports false for members to leave out.
func (st *encodeState) object(n int, key func(i int) (string, bool, error), elem func(i int) error) error {
	if err := st.enter(); err != nil {
		return err
	}
	st.level++
	st.buf = append(st.buf, '{')
	st.newline(st.level)
	first := true
	for i := 0; i < n; i++ {
		k, ok, err := key(i)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if !first {
			st.buf = append(st.buf, st.enc.itemSep...)
			st.newline(st.level)
		}
		first = false
		st.buf = appendQuoted(st.buf, k, st.enc.opts.EnsureASCII)
		st.buf = append(st.buf, st.enc.keySep...)
		if err := elem(i); err != nil {
			return atPath(err, k)
		}
	}
	st.depth--
	st.level--
	st.newline(st.level)
	st.buf = append(st.buf, '}')
	return nil
}

// ============================================================
// Go values
// ============================================================

func (st *encodeState) reflectValue(rv reflect.Value) error {
	if !rv.IsValid() {
		st.buf = append(st.buf, "null"...)
		return nil
	}
	t := rv.Type()
	if t.Implements(tagMarshalerType) && !(rv.Kind() == reflect.Pointer && rv.IsNil()) {
		v, err := rv.Interface().(TagMarshaler).MarshalESONTag()
		if err != nil {
			return err
		}
		return st.hooked(v)
	}
	if fn, ok := st.enc.reg.encoderFor(t); ok {
		v, err := fn(rv.Interface())
		if err != nil {
			return err
		}
		return st.hooked(v)
	}
	switch t {
	case bigIntPtrType:
		if rv.IsNil() {
			st.buf = append(st.buf, "null"...)
		} else {
			st.buf = rv.Interface().(*big.Int).Append(st.buf, 10)
		}
		return nil
	case jsonNumberType:
		n := rv.String()
		if _, err := strconv.ParseFloat(n, 64); err != nil && n != "" {
			return valueError(nil, "invalid number literal %q", n)
		}
		if n == "" {
			n = "0"
		}
		st.buf = append(st.buf, n...)
		return nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		st.buf = strconv.AppendBool(st.buf, rv.Bool())
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		st.buf = strconv.AppendInt(st.buf, rv.Int(), 10)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		st.buf = strconv.AppendUint(st.buf, rv.Uint(), 10)
		return nil
	case reflect.Float32:
		f, _ := strconv.ParseFloat(strconv.FormatFloat(rv.Float(), 'g', -1, 32), 64)
		return st.float(f)
	case reflect.Float64:
		return st.float(rv.Float())
	case reflect.String:
		st.buf = appendQuoted(st.buf, rv.String(), st.enc.opts.EnsureASCII)
		return nil
	case reflect.Slice:
		if rv.IsNil() {
			st.buf = append(st.buf, "null"...)
			return nil
		}
		return st.sequence(rv, visitKey{ptr: rv.Pointer(), len: rv.Len()})
	case reflect.Array:
		return st.sequence(rv, visitKey{})
	case reflect.Map:
		if rv.IsNil() {
			st.buf = append(st.buf, "null"...)
			return nil
		}
		return st.mapValue(rv)
	case reflect.Pointer:
		if rv.IsNil() {
			st.buf = append(st.buf, "null"...)
			return nil
		}
		marked, err := st.markVisit(visitKey{ptr: rv.Pointer(), len: -1})
		if err != nil {
			return err
		}
		err = st.encode(rv.Elem().Interface())
		if marked {
			delete(st.visiting, visitKey{ptr: rv.Pointer(), len: -1})
		}
		return err
	case reflect.Interface:
		if rv.IsNil() {
			st.buf = append(st.buf, "null"...)
			return nil
		}
		return st.encode(rv.Elem().Interface())
	}

	if fn := st.enc.opts.Default; fn != nil {
		v, err := fn(rv.Interface())
		if err != nil {
			return err
		}
		return st.hooked(v)
	}
	return typeError(ErrUnsupportedType, "Object of type %s is not ESON serializable", t)
}

// hooked encodes a value produced by an encoder hook. The hook counts as
// one nesting level so a hook that keeps returning its input terminates.
func (st *encodeState) hooked(v *Value) error {
	if err := st.enter(); err != nil {
		return err
	}
	err := st.value(v)
	st.depth--
	return err
}

func (st *encodeState) sequence(rv reflect.Value, k visitKey) error {
	n := rv.Len()
	if n == 0 {
		st.buf = append(st.buf, "[]"...)
		return nil
	}
	marked, err := st.markVisit(k)
	if err != nil {
		return err
	}
	err = st.array(n, func(i int) error { return st.encode(rv.Index(i).Interface()) })
	if marked {
		delete(st.visiting, k)
	}
	return err
}

type mapEntry struct {
	key string
	val reflect.Value
}

func (st *encodeState) mapValue(rv reflect.Value) error {
	if rv.Len() == 0 {
		st.buf = append(st.buf, "{}"...)
		return nil
	}
	k := visitKey{ptr: rv.Pointer(), len: -2}
	marked, err := st.markVisit(k)
	if err != nil {
		return err
	}
	if marked {
		defer delete(st.visiting, k)
	}

	entries := make([]mapEntry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key, ok, err := st.mapKey(iter.Key())
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		entries = append(entries, mapEntry{key: key, val: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	return st.object(len(entries), func(i int) (string, bool, error) {
		return entries[i].key, true, nil
	}, func(i int) error {
		return st.encode(entries[i].val.Interface())
	})
}

// mapKey stringifies a Go map key. ok is false for keys dropped by
// SkipKeys.
func (st *encodeState) mapKey(k reflect.Value) (string, bool, error) {
	if k.Kind() == reflect.Interface {
		if k.IsNil() {
			return "null", true, nil
		}
		k = k.Elem()
	}
	switch k.Kind() {
	case reflect.String:
		return k.String(), true, nil
	case reflect.Bool:
		return strconv.FormatBool(k.Bool()), true, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), true, nil
	case reflect.Float32, reflect.Float64:
		f := k.Float()
		if (math.IsNaN(f) || math.IsInf(f, 0)) && !st.enc.opts.AllowNaN {
			return "", false, valueError(ErrNonFinite, "Out of range float values are not ESON compliant: %s", appendFloat(nil, f))
		}
		return string(appendFloat(nil, f)), true, nil
	}
	if st.enc.opts.SkipKeys {
		return "", false, nil
	}
	return "", false, typeError(ErrInvalidKey, "keys must be str, int, float, bool or None, not %s", k.Type())
}
