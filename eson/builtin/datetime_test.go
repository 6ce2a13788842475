package builtin

import (
	"errors"
	"testing"
	"time"

	"github.com/Neumenon/eson/eson"
)

const stableData = `[` +
	`#core/datetime "1500-01-20T04:47:47", ` +
	`#core/datetime "1600-02-19T08:47:47.123456", ` +
	`#core/datetime "1700-03-18T12:47:47+08:30", ` +
	`#core/datetime "1800-04-17T16:47:47.123456-01:30", ` +
	`#core/datetime "1900-05-16T20:47:47-00:30"` +
	`]`

const unstableData = `[` +
	`#core/datetime "1500-01-20T04:47:47Z", ` +
	`#core/datetime "1600-02-19T08:47:47.123+00:30", ` +
	`#core/datetime "1700-03-18T12:47:47.0Z", ` +
	`#core/datetime "1800-04-17T16:47:47.123456789-00:30"` +
	`]`

func roundTrip(t *testing.T, text string) (*eson.Value, string) {
	t.Helper()
	v, err := eson.Decode(text)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	s, err := eson.Encode(v)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return v, s
}

func TestDateTime_StableData(t *testing.T) {
	obj1, str1 := roundTrip(t, stableData)
	if str1 != stableData {
		t.Errorf("round trip changed text:\n got %s\nwant %s", str1, stableData)
	}
	obj2, _ := roundTrip(t, str1)
	assertSameTimes(t, obj1, obj2)
}

func TestDateTime_UnstableData(t *testing.T) {
	obj1, str1 := roundTrip(t, unstableData)
	obj2, str2 := roundTrip(t, str1)
	if str1 != str2 {
		t.Errorf("second round trip changed text:\n%s\n%s", str1, str2)
	}
	assertSameTimes(t, obj1, obj2)

	want := `[` +
		`#core/datetime "1500-01-20T04:47:47+00:00", ` +
		`#core/datetime "1600-02-19T08:47:47.123000+00:30", ` +
		`#core/datetime "1700-03-18T12:47:47+00:00", ` +
		`#core/datetime "1800-04-17T16:47:47.123456789-00:30"` +
		`]`
	if str1 != want {
		t.Errorf("got  %s\nwant %s", str1, want)
	}
}

func assertSameTimes(t *testing.T, a, b *eson.Value) {
	t.Helper()
	as, _ := a.AsArray()
	bs, _ := b.AsArray()
	if len(as) != len(bs) {
		t.Fatalf("length %d != %d", len(as), len(bs))
	}
	for i := range as {
		x, err := as[i].AsOpaque()
		if err != nil {
			t.Fatal(err)
		}
		y, _ := bs[i].AsOpaque()
		tx, ty := x.(time.Time), y.(time.Time)
		_, ox := tx.Zone()
		_, oy := ty.Zone()
		if !tx.Equal(ty) || ox != oy {
			t.Errorf("element %d: %v != %v", i, tx, ty)
		}
	}
}

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		in     string
		nsec   int
		offset int
		naive  bool
	}{
		{"2019-01-20T04:47:47", 0, 0, true},
		{"2019-01-20T04:47:47Z", 0, 0, false},
		{"2019-01-20T04:47:47.5+01:00", 500000000, 3600, false},
		{"2019-01-20T04:47:47.", 0, 0, true},
		{"2019-01-20T04:47:47.1234567891-00:30", 123456789, -1800, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDateTime(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got.Nanosecond() != tt.nsec {
				t.Errorf("nsec = %d, want %d", got.Nanosecond(), tt.nsec)
			}
			if _, off := got.Zone(); off != tt.offset {
				t.Errorf("offset = %d, want %d", off, tt.offset)
			}
			if (got.Location() == Naive) != tt.naive {
				t.Errorf("naive = %v", got.Location() == Naive)
			}
		})
	}
}

func TestParseDateTime_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		"2019-01-20",
		"2019-01-20 04:47:47",
		"2019-13-20T04:47:47",
		"2019-02-30T04:47:47",
		"2019-01-20T24:00:00",
		"2019-01-20T04:60:00",
		"2019-01-20T04:47:47+25:00",
		"2019-01-20T04:47:47z",
		"19-01-20T04:47:47",
	} {
		_, err := ParseDateTime(in)
		if !errors.Is(err, ErrInvalidDateTime) {
			t.Errorf("%q: expected ErrInvalidDateTime, got %v", in, err)
		}
	}
}

func TestDecode_MalformedIsError(t *testing.T) {
	_, err := eson.Decode(`{"at": #core/datetime "yesterday"}`)
	if !errors.Is(err, ErrInvalidDateTime) {
		t.Fatalf("expected ErrInvalidDateTime, got %v", err)
	}
	var e *eson.Error
	if !errors.As(err, &e) || e.Pos == nil || e.Pos.Offset != 7 {
		t.Errorf("expected positioned error at the tag, got %v", err)
	}

	_, err = eson.Decode(`#core/datetime 17`)
	if !errors.Is(err, &eson.Error{Kind: eson.KindType}) {
		t.Errorf("non-string inner should be a type error, got %v", err)
	}
}

func TestEncode_TimeValues(t *testing.T) {
	at := time.Date(2020, 2, 29, 23, 59, 58, 1500, time.FixedZone("", -5*3600))
	s, err := eson.Encode(map[string]any{"at": at, "p": &at})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"at": #core/datetime "2020-02-29T23:59:58.000001500-05:00", ` +
		`"p": #core/datetime "2020-02-29T23:59:58.000001500-05:00"}`
	if s != want {
		t.Errorf("got  %s\nwant %s", s, want)
	}

	naive := time.Date(1999, 12, 31, 0, 0, 0, 0, Naive)
	if got := FormatDateTime(naive); got != "1999-12-31T00:00:00" {
		t.Errorf("naive = %s", got)
	}
}

func TestInstall(t *testing.T) {
	reg := eson.NewRegistry()
	if err := Install(reg); err != nil {
		t.Fatal(err)
	}
	if _, ok := reg.Resolve(DateTimeTag); !ok {
		t.Fatal("datetime handler missing")
	}
	if err := Install(reg); !errors.Is(err, eson.ErrPathInUse) {
		t.Errorf("second Install should fail with ErrPathInUse, got %v", err)
	}

	v, err := eson.DecodeWithOptions(`#core/datetime "2001-02-03T04:05:06Z"`, eson.DecodeOptions{Registry: reg})
	if err != nil {
		t.Fatal(err)
	}
	x, _ := v.AsOpaque()
	if tm := x.(time.Time); tm.Location() != time.UTC || tm.Year() != 2001 {
		t.Errorf("got %v", tm)
	}
}
