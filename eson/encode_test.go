package eson

import (
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"reflect"
	"strings"
	"testing"
)

// ============================================================
// JSON compatibility
// ============================================================

func fib(n int) any {
	switch n {
	case 0:
		return false
	case 1:
		return true
	}
	return map[string]any{"first": fib(n - 1), "second": fib(n - 2)}
}

func objList(n int) *Value {
	out := Array()
	for i := 0; i < n; i++ {
		out.Append(Object(
			Pair("text", Str("Foo")),
			Pair("id", Int(int64(i))),
			Pair("list", Array()),
		))
	}
	return out
}

func TestEncode_JSONGolden(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"true", true, "true"},
		{"false", false, "false"},
		{"null", nil, "null"},
		{"number", 42, "42"},
		{"string", `I hate using \ to write "`, `"I hate using \\ to write \""`},
		{"fib0", fib(0), "false"},
		{"fib2", fib(2), `{"first": true, "second": false}`},
		{"fib4", fib(4), `{"first": {"first": {"first": true, "second": false}, "second": true}, "second": {"first": true, "second": false}}`},
		{"objlist0", objList(0), "[]"},
		{"objlist2", objList(2), `[{"text": "Foo", "id": 0, "list": []}, {"text": "Foo", "id": 1, "list": []}]`},
		{"numlist", []int{0, 1, 2, 3}, "[0, 1, 2, 3]"},
		{"empty object", map[string]any{}, "{}"},
		{"nested empty", []any{[]any{}, map[string]int{}}, "[[], {}]"},
		{"unicode escaped", "\u1234", `"\u1234"`},
		{"astral pair", "\U0001f600", `"\ud83d\ude00"`},
		{"controls", "a\x00\x1f\x7f\b\f\n\r\t/", `"a\u0000\u001f\u007f\b\f\n\r\t/"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.in)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Encode = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncode_NumList(t *testing.T) {
	for _, n := range []int{0, 1, 5, 10, 50, 100, 1000, 10000} {
		nums := make([]int, n)
		parts := make([]string, n)
		for i := range nums {
			nums[i] = i
			parts[i] = itoa(i)
		}
		got, err := Encode(nums)
		if err != nil {
			t.Fatalf("Encode(%d) failed: %v", n, err)
		}
		if want := "[" + strings.Join(parts, ", ") + "]"; got != want {
			t.Errorf("NumList %d mismatch", n)
		}
	}
}

func itoa(i int) string {
	b, _ := json.Marshal(i)
	return string(b)
}

func TestEncode_Floats(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.0, "0.0"},
		{math.Copysign(0, -1), "-0.0"},
		{1.0, "1.0"},
		{1.5, "1.5"},
		{0.1, "0.1"},
		{100, "100.0"},
		{1e15, "1000000000000000.0"},
		{9999999999999998.0, "9999999999999998.0"},
		{1e16, "1e+16"},
		{123456789012345678.0, "1.2345678901234568e+17"},
		{1e22, "1e+22"},
		{1e-4, "0.0001"},
		{0.00012, "0.00012"},
		{1e-5, "1e-05"},
		{-2.5e-7, "-2.5e-07"},
		{1.5e300, "1.5e+300"},
		{math.Pi, "3.141592653589793"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := Encode(tt.in)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Encode(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncode_Float32Shortest(t *testing.T) {
	got, err := Encode(float32(0.1))
	if err != nil {
		t.Fatal(err)
	}
	if got != "0.1" {
		t.Errorf("got %q", got)
	}
}

func TestEncode_EnsureASCIIOff(t *testing.T) {
	opts := DefaultEncodeOptions()
	opts.EnsureASCII = false

	got, err := EncodeWithOptions([]string{"\u1234", "a\x00\x1f\x7f", "\U0001f600"}, opts)
	if err != nil {
		t.Fatal(err)
	}
	want := "[\"\u1234\", \"a\\u0000\\u001f\x7f\", \"\U0001f600\"]"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEncode_InvalidUTF8(t *testing.T) {
	got, err := Encode("a\xffb")
	if err != nil {
		t.Fatal(err)
	}
	if got != `"a\ufffdb"` {
		t.Errorf("got %q", got)
	}
}

// ============================================================
// Layout
// ============================================================

func TestEncode_Indent(t *testing.T) {
	tests := []struct {
		name string
		in   *Value
		opts EncodeOptions
		want string
	}{
		{
			name: "indent 4",
			in:   Object(Pair("4", Int(5)), Pair("6", Int(7))),
			opts: DefaultEncodeOptions().WithIndent(4),
			want: "{\n    \"4\": 5,\n    \"6\": 7\n}",
		},
		{
			name: "nested indent 2",
			in: Array(Int(1), Array(Int(2), Array()), Object(),
				Object(Pair("a", Array(Int(3))))),
			opts: DefaultEncodeOptions().WithIndent(2),
			want: "[\n  1,\n  [\n    2,\n    []\n  ],\n  {},\n  {\n    \"a\": [\n      3\n    ]\n  }\n]",
		},
		{
			name: "indent 0 only newlines",
			in:   Array(Int(1), Array(Int(2))),
			opts: DefaultEncodeOptions().WithIndent(0),
			want: "[\n1,\n[\n2\n]\n]",
		},
		{
			name: "compact separators",
			in:   Object(Pair("b", Int(1)), Pair("a", Array(Int(1), Int(2)))),
			opts: func() EncodeOptions {
				o := DefaultEncodeOptions()
				o.Separators = Separators{Item: ",", Key: ":"}
				return o
			}(),
			want: `{"b":1,"a":[1,2]}`,
		},
		{
			name: "sort keys",
			in: Object(Pair("b", Int(1)), Pair("a", Array(Int(1), Int(2))),
				Pair("c", Object(Pair("z", Int(1)), Pair("y", Int(2))))),
			opts: func() EncodeOptions {
				o := DefaultEncodeOptions()
				o.SortKeys = true
				return o
			}(),
			want: `{"a": [1, 2], "b": 1, "c": {"y": 2, "z": 1}}`,
		},
		{
			name: "tag keeps level",
			in:   Array(NewTag("a/b", Array(Int(1)))),
			opts: DefaultEncodeOptions().WithIndent(2),
			want: "[\n  #a/b [\n    1\n  ]\n]",
		},
		{
			name: "tag under object key",
			in:   Object(Pair("k", NewTag("a", Array(Int(1))))),
			opts: DefaultEncodeOptions().WithIndent(4),
			want: "{\n    \"k\": #a [\n        1\n    ]\n}",
		},
		{
			name: "nested tags",
			in:   Array(NewTag("a", NewTag("b", Object(Pair("x", Int(1)))))),
			opts: DefaultEncodeOptions().WithIndent(2),
			want: "[\n  #a #b {\n    \"x\": 1\n  }\n]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeWithOptions(tt.in, tt.opts)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodeIndent_HookKeepsLevel(t *testing.T) {
	type point struct{}
	opts := DefaultEncodeOptions().WithIndent(2)
	opts.Default = func(v any) (*Value, error) {
		if _, ok := v.(point); ok {
			return Array(Int(1), Int(2)), nil
		}
		return nil, typeError(ErrUnsupportedType, "unexpected %T", v)
	}

	got, err := EncodeWithOptions([]any{point{}}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if want := "[\n  [\n    1,\n    2\n  ]\n]"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEncodeIndent_Tab(t *testing.T) {
	got, err := EncodeIndent([]int{1, 2}, "\t")
	if err != nil {
		t.Fatal(err)
	}
	if got != "[\n\t1,\n\t2\n]" {
		t.Errorf("got %q", got)
	}
}

func TestEncoder_Append(t *testing.T) {
	enc := NewEncoder(DefaultEncodeOptions())
	dst := []byte("x=")
	dst, err := enc.Append(dst, []int{1})
	if err != nil {
		t.Fatal(err)
	}
	if string(dst) != "x=[1]" {
		t.Errorf("got %q", dst)
	}

	dst, err = enc.Append(dst, math.NaN)
	if err == nil {
		t.Fatal("expected error for func value")
	}
	if string(dst) != "x=[1]" {
		t.Errorf("dst changed on error: %q", dst)
	}
}

// ============================================================
// Tags
// ============================================================

func TestEncode_Tags(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"value tag", NewTag("a/b", Int(5)), "#a/b 5"},
		{"nested tags", NewTag("x", NewTag("y", Str("z"))), `#x #y "z"`},
		{"tagged struct", Tagged{Path: "core/thing", Value: []any{1, "a"}}, `#core/thing [1, "a"]`},
		{"tag in object", Object(Pair("k", NewTag("t", Null()))), `{"k": #t null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.in)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncode_InvalidTagPath(t *testing.T) {
	for _, path := range []string{"", "a//b", "a/", "/a", "a b", "ä"} {
		_, err := Encode(NewTag(path, Int(1)))
		if !errors.Is(err, ErrInvalidPath) {
			t.Errorf("path %q: expected ErrInvalidPath, got %v", path, err)
		}
		if !errors.Is(err, &Error{Kind: KindValue}) {
			t.Errorf("path %q: expected value error, got %v", path, err)
		}
	}
}

type point struct{ X, Y int }

func (p point) MarshalESONTag() (*Value, error) {
	return NewTag("geo/point", Array(Int(int64(p.X)), Int(int64(p.Y)))), nil
}

type celsius float64

func TestEncode_TagMarshaler(t *testing.T) {
	got, err := Encode([]any{point{1, 2}, &point{3, 4}})
	if err != nil {
		t.Fatal(err)
	}
	if want := "[#geo/point [1, 2], #geo/point [3, 4]]"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEncode_RegisteredType(t *testing.T) {
	reg := NewRegistry()
	err := RegisterType(reg, func(c celsius) (*Value, error) {
		return NewTag("unit/celsius", Float(float64(c))), nil
	})
	if err != nil {
		t.Fatal(err)
	}

	opts := DefaultEncodeOptions()
	opts.Registry = reg
	got, err := EncodeWithOptions(map[string]any{"t": celsius(21.5)}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"t": #unit/celsius 21.5}`; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	// Without the registry the named float is written as a plain float.
	got, err = Encode(celsius(21.5))
	if err != nil {
		t.Fatal(err)
	}
	if got != "21.5" {
		t.Errorf("got %q", got)
	}
}

func TestEncode_DefaultHook(t *testing.T) {
	type secret struct{ v string }

	_, err := Encode(secret{"x"})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if !strings.Contains(err.Error(), "is not ESON serializable") {
		t.Errorf("unexpected message: %v", err)
	}

	opts := DefaultEncodeOptions()
	opts.Default = func(v any) (*Value, error) {
		if s, ok := v.(secret); ok {
			return NewTag("secret", Str(strings.Repeat("*", len(s.v)))), nil
		}
		return nil, typeError(ErrUnsupportedType, "unexpected %T", v)
	}
	got, err := EncodeWithOptions([]any{secret{"abc"}}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if got != `[#secret "***"]` {
		t.Errorf("got %q", got)
	}
}

func TestEncode_HookLoopHitsDepth(t *testing.T) {
	type loop struct{}
	opts := DefaultEncodeOptions()
	opts.MaxDepth = 50
	opts.Default = func(v any) (*Value, error) { return Opaque(v), nil }

	_, err := EncodeWithOptions(loop{}, opts)
	if !errors.Is(err, ErrMaxDepth) {
		t.Fatalf("expected ErrMaxDepth, got %v", err)
	}
}

// ============================================================
// Go values
// ============================================================

func TestEncode_GoKinds(t *testing.T) {
	big1, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	name := "n"

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"int8", int8(-3), "-3"},
		{"uint64", uint64(math.MaxUint64), "18446744073709551615"},
		{"big", big1, "123456789012345678901234567890"},
		{"json number", json.Number("1.25e3"), "1.25e3"},
		{"pointer", &name, `"n"`},
		{"nil pointer", (*int)(nil), "null"},
		{"nil slice", []int(nil), "null"},
		{"array", [2]bool{true, false}, "[true, false]"},
		{"sorted map", map[string]int{"b": 2, "a": 1}, `{"a": 1, "b": 2}`},
		{"opaque", Opaque([]string{"x"}), `["x"]`},
		{"big value", BigInt(big1), "123456789012345678901234567890"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.in)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncode_MapKeys(t *testing.T) {
	got, err := Encode(map[any]int{true: 1, 1.5: 2, nil: 3, 2: 4})
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"1.5": 2, "2": 4, "null": 3, "true": 1}`; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	bad := map[any]int{[2]int{1, 2}: 1, "ok": 2}
	_, err = Encode(bad)
	if !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if !errors.Is(err, &Error{Kind: KindType}) {
		t.Errorf("expected type error, got %v", err)
	}

	opts := DefaultEncodeOptions()
	opts.SkipKeys = true
	got, err = EncodeWithOptions(bad, opts)
	if err != nil {
		t.Fatal(err)
	}
	if got != `{"ok": 2}` {
		t.Errorf("got %q", got)
	}
}

// ============================================================
// Failure modes
// ============================================================

func TestEncode_AllowNaN(t *testing.T) {
	opts := DefaultEncodeOptions()
	opts.AllowNaN = false

	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := EncodeWithOptions(Array(Float(f)), opts)
		if !errors.Is(err, ErrNonFinite) {
			t.Errorf("%v: expected ErrNonFinite, got %v", f, err)
		}
	}
	if got, err := EncodeWithOptions(1.5, opts); err != nil || got != "1.5" {
		t.Errorf("finite float: %q, %v", got, err)
	}
}

func TestEncode_Circular(t *testing.T) {
	arr := Array(Int(1))
	obj := Object(Pair("self", arr))
	arr.Append(obj)

	_, err := Encode(arr)
	if !errors.Is(err, ErrCircular) {
		t.Fatalf("expected ErrCircular, got %v", err)
	}
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindValue {
		t.Fatalf("expected value *Error, got %#v", err)
	}
	if got := formatPath(e.Path); got != "[1].self" {
		t.Errorf("path = %q", got)
	}

	opts := DefaultEncodeOptions()
	opts.CheckCircular = false
	opts.MaxDepth = 100
	_, err = EncodeWithOptions(arr, opts)
	if !errors.Is(err, ErrMaxDepth) {
		t.Fatalf("expected ErrMaxDepth without circular check, got %v", err)
	}
}

func TestEncode_CircularGo(t *testing.T) {
	m := map[string]any{}
	m["m"] = m
	if _, err := Encode(m); !errors.Is(err, ErrCircular) {
		t.Errorf("map: expected ErrCircular, got %v", err)
	}

	s := make([]any, 1)
	s[0] = s
	if _, err := Encode(s); !errors.Is(err, ErrCircular) {
		t.Errorf("slice: expected ErrCircular, got %v", err)
	}

	var p any
	p = &p
	if _, err := Encode(p); !errors.Is(err, ErrCircular) {
		t.Errorf("pointer: expected ErrCircular, got %v", err)
	}
}

func TestEncode_SharedNotCircular(t *testing.T) {
	shared := Array(Int(1))
	got, err := Encode(Array(shared, shared))
	if err != nil {
		t.Fatal(err)
	}
	if got != "[[1], [1]]" {
		t.Errorf("got %q", got)
	}

	inner := []int{1}
	got, err = Encode([][]int{inner, inner})
	if err != nil {
		t.Fatal(err)
	}
	if got != "[[1], [1]]" {
		t.Errorf("got %q", got)
	}
}

func TestEncode_ErrorPath(t *testing.T) {
	opts := DefaultEncodeOptions()
	opts.AllowNaN = false
	v := Array(Int(0), Object(Pair("a", Array(Float(math.NaN())))))

	_, err := EncodeWithOptions(v, opts)
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if !reflect.DeepEqual(e.Path, []string{"[1]", "a", "[0]"}) {
		t.Errorf("path = %v", e.Path)
	}
	if !strings.Contains(err.Error(), "at [1].a[0]") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestEncodeOptions_IsDefault(t *testing.T) {
	opts := DefaultEncodeOptions()
	if !opts.isDefault() {
		t.Error("DefaultEncodeOptions should be default")
	}
	opts.SortKeys = true
	if opts.isDefault() {
		t.Error("SortKeys should not be default")
	}
	zero := EncodeOptions{}
	if zero.isDefault() {
		t.Error("zero EncodeOptions differ from defaults")
	}
}

// ============================================================
// Benchmarks
// ============================================================

func BenchmarkEncode_ObjList(b *testing.B) {
	v := objList(100)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Encode(v); err != nil {
			b.Fatal(err)
		}
	}
}
