package eson

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Kind categorizes an error.
type Kind string

const (
	KindSyntax    Kind = "syntax"     // malformed ESON text
	KindType      Kind = "type"       // value or key of an unsupported type
	KindValue     Kind = "value"      // well-typed but unacceptable value
	KindRegistry  Kind = "registry"   // tag registry conflicts
	KindTagLookup Kind = "tag_lookup" // unregistered tag under the error strategy
)

type sentinel string

func (s sentinel) Error() string { return string(s) }

// Sentinel causes. Match them with errors.Is.
var (
	ErrCircular         error = sentinel("circular reference detected")
	ErrNonFinite        error = sentinel("out of range float values are not ESON compliant")
	ErrBOM              error = sentinel("unexpected UTF-8 BOM (decode using utf-8-sig)")
	ErrMaxDepth         error = sentinel("maximum nesting depth exceeded")
	ErrExtraData        error = sentinel("extra data after top-level value")
	ErrUnsupportedType  error = sentinel("value is not ESON serializable")
	ErrInvalidKey       error = sentinel("unsupported object key type")
	ErrInvalidPath      error = sentinel("invalid tag path")
	ErrParentMissing    error = sentinel("parent namespace not registered")
	ErrPathInUse        error = sentinel("path already in use")
	ErrTypeRegistered   error = sentinel("encoder already registered for type")
	ErrTagNotRegistered error = sentinel("tag not registered")
)

// Position is a location in ESON text. Offset counts bytes from the start;
// Line and Column are 1-based, Column counting runes.
type Position struct {
	Offset int
	Line   int
	Column int
}

// String returns position as "line L column C (char O)".
func (p Position) String() string {
	return fmt.Sprintf("line %d column %d (char %d)", p.Line, p.Column, p.Offset)
}

// positionAt derives line and column for a byte offset in text.
func positionAt(text string, offset int) Position {
	if offset > len(text) {
		offset = len(text)
	}
	line := 1 + strings.Count(text[:offset], "\n")
	lineStart := strings.LastIndexByte(text[:offset], '\n') + 1
	return Position{
		Offset: offset,
		Line:   line,
		Column: utf8.RuneCountInString(text[lineStart:offset]) + 1,
	}
}

// Error is the structured error type for encode, registry and tag
// dispatch failures.
type Error struct {
	Kind   Kind
	Path   []string  // location inside the value being encoded, outermost first
	Pos    *Position // location in the text being decoded, if any
	Detail string
	Cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("eson: ")
	switch {
	case e.Detail != "":
		b.WriteString(e.Detail)
	case e.Cause != nil:
		b.WriteString(e.Cause.Error())
	default:
		b.WriteString(string(e.Kind))
		b.WriteString(" error")
	}
	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(formatPath(e.Path))
	}
	if e.Pos != nil {
		b.WriteString(": ")
		b.WriteString(e.Pos.String())
	}
	if e.Detail != "" && e.Cause != nil {
		if _, ok := e.Cause.(sentinel); !ok {
			b.WriteString(" (caused by: ")
			b.WriteString(e.Cause.Error())
			b.WriteByte(')')
		}
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

func formatPath(path []string) string {
	var b strings.Builder
	for i, seg := range path {
		if strings.HasPrefix(seg, "[") || i == 0 {
			b.WriteString(seg)
			continue
		}
		b.WriteByte('.')
		b.WriteString(seg)
	}
	return b.String()
}

// SyntaxError reports malformed ESON text.
type SyntaxError struct {
	Msg   string
	Pos   Position
	Cause error
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("eson: %s: %s", e.Msg, e.Pos)
}

// Unwrap returns the underlying error.
func (e *SyntaxError) Unwrap() error {
	return e.Cause
}

// Is matches an *Error of KindSyntax.
func (e *SyntaxError) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return t.Kind == KindSyntax
	}
	return false
}

// ============================================================
// Constructors
// ============================================================

func typeError(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindType, Detail: fmt.Sprintf(format, args...), Cause: cause}
}

func valueError(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindValue, Detail: fmt.Sprintf(format, args...), Cause: cause}
}

func registryError(cause error, path string) *Error {
	return &Error{Kind: KindRegistry, Detail: fmt.Sprintf("%s: %q", cause, path), Cause: cause}
}

// atPath prefixes seg onto the path of an encode error on its way up.
func atPath(err error, seg string) error {
	if e, ok := err.(*Error); ok {
		e.Path = append([]string{seg}, e.Path...)
	}
	return err
}
