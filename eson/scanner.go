package eson

import (
	"errors"
	"math"
	"math/big"
	"strconv"
	"sync"
	"unicode/utf16"
	"unicode/utf8"
)

// DefaultMaxDepth bounds the nesting of containers and tags in both
// directions unless options set another limit.
const DefaultMaxDepth = 10000

// scanner holds the per-call state of one decode.
type scanner struct {
	dec   *Decoder
	data  string
	depth int
	buf   []byte
}

var scannerPool = sync.Pool{
	New: func() any { return new(scanner) },
}

func newScanner(dec *Decoder, data string) *scanner {
	s := scannerPool.Get().(*scanner)
	s.dec = dec
	s.data = data
	s.depth = 0
	return s
}

func (s *scanner) release() {
	s.dec = nil
	s.data = ""
	if cap(s.buf) > 64<<10 {
		s.buf = nil
	}
	scannerPool.Put(s)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func (s *scanner) skipSpace(i int) int {
	for i < len(s.data) && isSpace(s.data[i]) {
		i++
	}
	return i
}

func (s *scanner) syntaxErr(msg string, off int) *SyntaxError {
	return &SyntaxError{Msg: msg, Pos: positionAt(s.data, off)}
}

// hookErr attaches the text position to an *Error coming back from a hook,
// tag handler or strategy. Other errors pass through untouched.
func (s *scanner) hookErr(err error, off int) error {
	e, ok := err.(*Error)
	if !ok || e.Pos != nil {
		return err
	}
	cp := *e
	pos := positionAt(s.data, off)
	cp.Pos = &pos
	return &cp
}

func (s *scanner) enter(off int) error {
	s.depth++
	if s.depth > s.dec.maxDepth {
		return &SyntaxError{Msg: "maximum nesting depth exceeded", Pos: positionAt(s.data, off), Cause: ErrMaxDepth}
	}
	return nil
}

func orNull(v *Value) *Value {
	if v == nil {
		return Null()
	}
	return v
}

// value scans one value starting exactly at i. It returns the value and
// the offset just past it.
func (s *scanner) value(i int) (*Value, int, error) {
	data := s.data
	if i >= len(data) {
		return nil, i, s.syntaxErr("Expecting value", i)
	}
	switch c := data[i]; c {
	case '"':
		str, end, err := s.str(i + 1)
		if err != nil {
			return nil, end, err
		}
		return Str(str), end, nil
	case '{':
		return s.object(i)
	case '[':
		return s.array(i)
	case 'n':
		if hasWord(data, i, "null") {
			return Null(), i + 4, nil
		}
	case 't':
		if hasWord(data, i, "true") {
			return Bool(true), i + 4, nil
		}
	case 'f':
		if hasWord(data, i, "false") {
			return Bool(false), i + 5, nil
		}
	case '#':
		return s.tag(i)
	}

	if v, end, ok, err := s.number(i); ok || err != nil {
		return v, end, err
	}

	switch {
	case hasWord(data, i, "NaN"):
		return s.constant("NaN", i)
	case hasWord(data, i, "Infinity"):
		return s.constant("Infinity", i)
	case hasWord(data, i, "-Infinity"):
		return s.constant("-Infinity", i)
	}
	return nil, i, s.syntaxErr("Expecting value", i)
}

func hasWord(data string, i int, w string) bool {
	return len(data)-i >= len(w) && data[i:i+len(w)] == w
}

func (s *scanner) constant(name string, i int) (*Value, int, error) {
	end := i + len(name)
	if hook := s.dec.opts.ParseConstant; hook != nil {
		v, err := hook(name)
		if err != nil {
			return nil, end, s.hookErr(err, i)
		}
		return orNull(v), end, nil
	}
	switch name {
	case "NaN":
		return Float(math.NaN()), end, nil
	case "Infinity":
		return Float(math.Inf(1)), end, nil
	default:
		return Float(math.Inf(-1)), end, nil
	}
}

// number matches -?(0|[1-9]\d*)(\.\d+)?([eE][-+]?\d+)? at i. ok is false
// when no number starts at i.
func (s *scanner) number(i int) (*Value, int, bool, error) {
	data := s.data
	j := i
	if j < len(data) && data[j] == '-' {
		j++
	}
	if j >= len(data) || !isDigit(data[j]) {
		return nil, i, false, nil
	}
	if data[j] == '0' {
		j++
	} else {
		for j < len(data) && isDigit(data[j]) {
			j++
		}
	}
	isFloat := false
	if j+1 < len(data) && data[j] == '.' && isDigit(data[j+1]) {
		j += 2
		for j < len(data) && isDigit(data[j]) {
			j++
		}
		isFloat = true
	}
	if j < len(data) && (data[j] == 'e' || data[j] == 'E') {
		k := j + 1
		if k < len(data) && (data[k] == '+' || data[k] == '-') {
			k++
		}
		if k < len(data) && isDigit(data[k]) {
			for k < len(data) && isDigit(data[k]) {
				k++
			}
			j = k
			isFloat = true
		}
	}
	lit := data[i:j]

	hook := s.dec.opts.ParseInt
	if isFloat {
		hook = s.dec.opts.ParseFloat
	}
	if hook != nil {
		v, err := hook(lit)
		if err != nil {
			return nil, j, true, s.hookErr(err, i)
		}
		return orNull(v), j, true, nil
	}
	if isFloat {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return nil, i, true, s.syntaxErr("Expecting value", i)
		}
		return Float(f), j, true, nil
	}
	if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return Int(n), j, true, nil
	}
	b, _ := new(big.Int).SetString(lit, 10)
	return BigInt(b), j, true, nil
}

// str scans a string body starting just past the opening quote at i-1.
func (s *scanner) str(i int) (string, int, error) {
	data := s.data
	begin := i - 1
	j := i
	for j < len(data) {
		c := data[j]
		if c == '"' {
			return data[i:j], j + 1, nil
		}
		if c == '\\' {
			break
		}
		if c < 0x20 {
			return "", j, s.syntaxErr("Invalid control character at", j)
		}
		j++
	}
	if j >= len(data) {
		return "", j, s.syntaxErr("Unterminated string starting at", begin)
	}

	buf := append(s.buf[:0], data[i:j]...)
	for {
		if j >= len(data) {
			return "", j, s.syntaxErr("Unterminated string starting at", begin)
		}
		c := data[j]
		switch {
		case c == '"':
			s.buf = buf
			return string(buf), j + 1, nil
		case c < 0x20:
			return "", j, s.syntaxErr("Invalid control character at", j)
		case c != '\\':
			run := j + 1
			for run < len(data) && data[run] != '"' && data[run] != '\\' && data[run] >= 0x20 {
				run++
			}
			buf = append(buf, data[j:run]...)
			j = run
			continue
		}

		if j+1 >= len(data) {
			return "", j, s.syntaxErr("Unterminated string starting at", begin)
		}
		switch e := data[j+1]; e {
		case '"', '\\', '/':
			buf = append(buf, e)
		case 'b':
			buf = append(buf, '\b')
		case 'f':
			buf = append(buf, '\f')
		case 'n':
			buf = append(buf, '\n')
		case 'r':
			buf = append(buf, '\r')
		case 't':
			buf = append(buf, '\t')
		case 'u':
			r, ok := hex4(data, j+2)
			if !ok {
				return "", j, s.syntaxErr("Invalid \\uXXXX escape", j+1)
			}
			j += 6
			if utf16.IsSurrogate(r) {
				lo, ok := rune(0), false
				if r < 0xdc00 && hasWord(data, j, `\u`) {
					lo, ok = hex4(data, j+2)
				}
				if ok && lo >= 0xdc00 && lo <= 0xdfff {
					r = utf16.DecodeRune(r, lo)
					j += 6
				} else {
					r = utf8.RuneError
				}
			}
			buf = utf8.AppendRune(buf, r)
			continue
		default:
			return "", j, s.syntaxErr("Invalid \\escape", j)
		}
		j += 2
	}
}

func hex4(data string, i int) (rune, bool) {
	if len(data)-i < 4 {
		return 0, false
	}
	var r rune
	for _, c := range []byte(data[i : i+4]) {
		switch {
		case c >= '0' && c <= '9':
			c -= '0'
		case c >= 'a' && c <= 'f':
			c = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			c = c - 'A' + 10
		default:
			return 0, false
		}
		r = r<<4 | rune(c)
	}
	return r, true
}

func (s *scanner) object(start int) (*Value, int, error) {
	if err := s.enter(start); err != nil {
		return nil, start, err
	}
	defer func() { s.depth-- }()

	data := s.data
	opts := &s.dec.opts
	var pairs []Member
	obj := &Value{typ: TypeObject}

	i := s.skipSpace(start + 1)
	if i < len(data) && data[i] == '}' {
		return s.finishObject(obj, pairs, start, i+1)
	}
	for {
		if i >= len(data) || data[i] != '"' {
			return nil, i, s.syntaxErr("Expecting property name enclosed in double quotes", i)
		}
		key, end, err := s.str(i + 1)
		if err != nil {
			return nil, end, err
		}
		i = s.skipSpace(end)
		if i >= len(data) || data[i] != ':' {
			return nil, i, s.syntaxErr("Expecting ':' delimiter", i)
		}
		i = s.skipSpace(i + 1)
		val, end, err := s.value(i)
		if err != nil {
			return nil, end, err
		}
		if opts.ObjectPairsHook != nil {
			pairs = append(pairs, Member{Key: key, Value: val})
		} else {
			obj.Set(key, val)
		}

		i = s.skipSpace(end)
		if i < len(data) && data[i] == '}' {
			return s.finishObject(obj, pairs, start, i+1)
		}
		if i >= len(data) || data[i] != ',' {
			return nil, i, s.syntaxErr("Expecting ',' delimiter", i)
		}
		i = s.skipSpace(i + 1)
	}
}

func (s *scanner) finishObject(obj *Value, pairs []Member, start, end int) (*Value, int, error) {
	opts := &s.dec.opts
	switch {
	case opts.ObjectPairsHook != nil:
		if pairs == nil {
			pairs = []Member{}
		}
		v, err := opts.ObjectPairsHook(pairs)
		if err != nil {
			return nil, end, s.hookErr(err, start)
		}
		return orNull(v), end, nil
	case opts.ObjectHook != nil:
		v, err := opts.ObjectHook(obj)
		if err != nil {
			return nil, end, s.hookErr(err, start)
		}
		return orNull(v), end, nil
	}
	return obj, end, nil
}

func (s *scanner) array(start int) (*Value, int, error) {
	if err := s.enter(start); err != nil {
		return nil, start, err
	}
	defer func() { s.depth-- }()

	data := s.data
	arr := &Value{typ: TypeArray}
	i := s.skipSpace(start + 1)
	if i < len(data) && data[i] == ']' {
		return arr, i + 1, nil
	}
	for {
		val, end, err := s.value(i)
		if err != nil {
			return nil, end, err
		}
		arr.listVal = append(arr.listVal, val)
		i = s.skipSpace(end)
		if i < len(data) && data[i] == ']' {
			return arr, i + 1, nil
		}
		if i >= len(data) || data[i] != ',' {
			return nil, i, s.syntaxErr("Expecting ',' delimiter", i)
		}
		i = s.skipSpace(i + 1)
	}
}

// tag scans '#' path ws value and hands the pair to the decode strategy.
func (s *scanner) tag(start int) (*Value, int, error) {
	data := s.data
	j := start + 1
	for {
		segStart := j
		for j < len(data) && isPathChar(data[j]) {
			j++
		}
		if j == segStart {
			return nil, j, s.syntaxErr("Expecting tag path segment", j)
		}
		if j < len(data) && data[j] == '/' {
			j++
			continue
		}
		break
	}
	path := data[start+1 : j]
	if j >= len(data) || !isSpace(data[j]) {
		return nil, j, s.syntaxErr("Expecting whitespace after tag", j)
	}

	if err := s.enter(start); err != nil {
		return nil, start, err
	}
	inner, end, err := s.value(s.skipSpace(j))
	s.depth--
	if err != nil {
		return nil, end, err
	}

	v, err := s.dec.strategy(path, inner)
	if err != nil {
		return nil, end, s.hookErr(err, start)
	}
	return orNull(v), end, nil
}
