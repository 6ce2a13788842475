package builtin

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/Neumenon/eson/eson"
)

// ErrInvalidDateTime is the cause of errors for timestamps that do not
// match the core/datetime format or name an impossible instant.
var ErrInvalidDateTime = errors.New("builtin: invalid datetime")

// Naive is the location of timestamps written without a zone. Times in
// Naive encode without an offset.
var Naive = time.FixedZone("naive", 0)

var dateTimeRE = regexp.MustCompile(
	`^(\d{4})-(\d\d)-(\d\d)` +
		`T(\d\d):(\d\d):(\d\d)(\.\d*)?` +
		`(Z|([+-])(\d\d):(\d\d))?$`)

// ParseDateTime parses YYYY-MM-DDTHH:MM:SS with an optional fraction and
// an optional Z or ±HH:MM zone.
func ParseDateTime(s string) (time.Time, error) {
	m := dateTimeRE.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, invalid(s)
	}
	n := make([]int, 6)
	for i := range n {
		n[i], _ = strconv.Atoi(m[i+1])
	}
	year, month, day, hour, minute, sec := n[0], n[1], n[2], n[3], n[4], n[5]
	if month < 1 || month > 12 || day < 1 || hour > 23 || minute > 59 || sec > 59 {
		return time.Time{}, invalid(s)
	}

	nsec := 0
	if frac := m[7]; len(frac) > 1 {
		digits := frac[1:]
		if len(digits) > 9 {
			digits = digits[:9]
		}
		nsec, _ = strconv.Atoi(digits)
		for i := len(digits); i < 9; i++ {
			nsec *= 10
		}
	}

	loc := Naive
	switch m[8] {
	case "":
	case "Z":
		loc = time.UTC
	default:
		hh, _ := strconv.Atoi(m[10])
		mm, _ := strconv.Atoi(m[11])
		if hh > 23 || mm > 59 {
			return time.Time{}, invalid(s)
		}
		off := hh*3600 + mm*60
		if m[9] == "-" {
			off = -off
		}
		loc = time.FixedZone("", off)
	}

	t := time.Date(year, time.Month(month), day, hour, minute, sec, nsec, loc)
	if t.Day() != day {
		// time.Date normalized an impossible day such as Feb 30.
		return time.Time{}, invalid(s)
	}
	return t, nil
}

func invalid(s string) error {
	return &eson.Error{Kind: eson.KindValue, Detail: fmt.Sprintf("invalid datetime %q", s), Cause: ErrInvalidDateTime}
}

// FormatDateTime writes t in the core/datetime format. The fraction has
// six digits for whole microseconds, nine otherwise, and is left out when
// zero. UTC is written as +00:00.
func FormatDateTime(t time.Time) string {
	b := make([]byte, 0, 35)
	b = t.AppendFormat(b, "2006-01-02T15:04:05")
	if ns := t.Nanosecond(); ns != 0 {
		if ns%1000 == 0 {
			b = fmt.Appendf(b, ".%06d", ns/1000)
		} else {
			b = fmt.Appendf(b, ".%09d", ns)
		}
	}
	if t.Location() == Naive {
		return string(b)
	}
	_, off := t.Zone()
	sign := byte('+')
	if off < 0 {
		sign = '-'
		off = -off
	}
	return string(fmt.Appendf(b, "%c%02d:%02d", sign, off/3600, off/60%60))
}

func decodeDateTime(inner *eson.Value) (*eson.Value, error) {
	s, err := inner.AsStr()
	if err != nil {
		return nil, &eson.Error{Kind: eson.KindType, Detail: DateTimeTag + " expects a string", Cause: err}
	}
	t, err := ParseDateTime(s)
	if err != nil {
		return nil, err
	}
	return eson.Opaque(t), nil
}

// EncodeDateTime is the tag encoder for time.Time.
func EncodeDateTime(t time.Time) (*eson.Value, error) {
	return eson.NewTag(DateTimeTag, eson.Str(FormatDateTime(t))), nil
}
