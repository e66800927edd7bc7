package image

import (
	"fmt"
	"os"
	"strings"
)

// Detect guesses the encoding of data. Anything made only of digits,
// signs, commas and whitespace is text.
func Detect(data []byte) Encoding {
	if len(data) == 0 {
		return EncodingText
	}
	for _, b := range data {
		switch {
		case b >= '0' && b <= '9':
		case b == '-' || b == '+' || b == ',':
		case b == ' ' || b == '\t' || b == '\r' || b == '\n':
		default:
			return EncodingBinary
		}
	}
	return EncodingText
}

// Decode decodes data in the given encoding.
func Decode(data []byte, enc Encoding) ([]int64, error) {
	switch enc {
	case EncodingText:
		return Parse(string(data))
	case EncodingBinary:
		return DecodeBinary(data)
	default:
		return nil, fmt.Errorf("image: unknown encoding %s", enc)
	}
}

// Encode encodes program in the given encoding. Text images end with a
// newline.
func Encode(program []int64, enc Encoding) ([]byte, error) {
	switch enc {
	case EncodingText:
		return []byte(Format(program) + "\n"), nil
	case EncodingBinary:
		return EncodeBinary(program), nil
	default:
		return nil, fmt.Errorf("image: unknown encoding %s", enc)
	}
}

// ReadFile loads a program image, choosing the encoding from the file
// extension.
func ReadFile(path string) ([]int64, error) {
	return ReadFileAs(path, EncodingFor(path))
}

// ReadFileAs loads a program image in an explicit encoding.
func ReadFileAs(path string, enc Encoding) ([]int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("image: reading %s: %w", path, err)
	}
	program, err := Decode(data, enc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return program, nil
}

// WriteFile stores program, choosing the encoding from the file
// extension.
func WriteFile(path string, program []int64) error {
	data, err := Encode(program, EncodingFor(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("image: writing %s: %w", path, err)
	}
	return nil
}

// Name derives a display name for a program from its path.
func Name(path string) string {
	base := path
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}
