// Package image reads and writes Intcode program images.
//
// Two encodings are supported. The text encoding is the usual
// comma-separated list of signed decimal integers. The binary encoding is
// the protobuf wire form of
//
//	message Program { repeated sint64 cells = 1; }
//
// written packed, so images produced here can be read by any protobuf
// runtime given that schema.
package image

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
)

// Errors returned by Parse.
var (
	ErrEmpty     = errors.New("empty program")
	ErrEmptyCell = errors.New("empty cell")
)

// Encoding selects an on-disk program format.
type Encoding int

const (
	EncodingText Encoding = iota
	EncodingBinary
)

// BinaryExt is the file extension that selects the binary encoding.
const BinaryExt = ".icb"

func (e Encoding) String() string {
	switch e {
	case EncodingText:
		return "text"
	case EncodingBinary:
		return "binary"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

// ParseEncoding accepts "text" or "binary". The empty string is text.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return EncodingText, nil
	case "binary", "icb":
		return EncodingBinary, nil
	}
	return 0, fmt.Errorf("image: unknown encoding %q", s)
}

// EncodingFor picks the encoding implied by a file name.
func EncodingFor(path string) Encoding {
	if strings.EqualFold(filepath.Ext(path), BinaryExt) {
		return EncodingBinary
	}
	return EncodingText
}

// ParseError reports a malformed cell in a text image. Offset is a byte
// offset into the input; Line and Column are zero-based and derived from
// it.
type ParseError struct {
	Cell   int
	Offset int
	Line   int
	Column int
	Text   string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("image: cell %d at %d:%d: %v", e.Cell, e.Line+1, e.Column+1, e.Err)
	}
	return fmt.Sprintf("image: cell %d at %d:%d: invalid integer %q", e.Cell, e.Line+1, e.Column+1, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse decodes a text image. Whitespace around cells, including
// newlines, is ignored, as is a single trailing comma.
func Parse(text string) ([]int64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmpty
	}

	var program []int64
	start := 0
	for i := 0; i <= len(text); i++ {
		if i < len(text) && text[i] != ',' {
			continue
		}
		field := text[start:i]
		lead := len(field) - len(strings.TrimLeftFunc(field, unicode.IsSpace))
		trimmed := strings.TrimSpace(field)

		if trimmed == "" {
			if i == len(text) && len(program) > 0 {
				break
			}
			return nil, newParseError(text, len(program), start+lead, "", ErrEmptyCell)
		}

		v, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, newParseError(text, len(program), start+lead, trimmed, err)
		}
		program = append(program, v)
		start = i + 1
	}
	return program, nil
}

func newParseError(text string, cell, offset int, bad string, err error) *ParseError {
	line := strings.Count(text[:offset], "\n")
	col := offset
	if nl := strings.LastIndexByte(text[:offset], '\n'); nl >= 0 {
		col = offset - nl - 1
	}
	return &ParseError{Cell: cell, Offset: offset, Line: line, Column: col, Text: bad, Err: err}
}

// Format renders program as a text image without a trailing newline.
func Format(program []int64) string {
	var sb strings.Builder
	for i, c := range program {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatInt(c, 10))
	}
	return sb.String()
}

// Span locates one cell of a text image. Line and Column are zero-based
// and Column counts bytes.
type Span struct {
	Offset int
	Line   int
	Column int
	Len    int
}

// Spans returns the location of every non-blank cell in text, in order,
// whether or not it parses.
func Spans(text string) []Span {
	var (
		spans     []Span
		line      int
		lineStart int
		cur       = -1
	)
	flush := func(end int) {
		if cur < 0 {
			return
		}
		spans = append(spans, Span{Offset: cur, Line: line, Column: cur - lineStart, Len: end - cur})
		cur = -1
	}
	for i := 0; i < len(text); i++ {
		switch c := text[i]; {
		case c == ',':
			flush(i)
		case c == '\n':
			flush(i)
			line++
			lineStart = i + 1
		case c == ' ' || c == '\t' || c == '\r':
			flush(i)
		default:
			if cur < 0 {
				cur = i
			}
		}
	}
	flush(len(text))
	return spans
}
