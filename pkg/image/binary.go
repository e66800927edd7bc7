package image

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is returned when a binary image cannot be decoded.
var ErrMalformed = errors.New("malformed binary image")

const fieldCells protowire.Number = 1

// EncodeBinary encodes program as a packed Program message. An empty
// program encodes to zero bytes, as proto3 omits empty repeated fields.
func EncodeBinary(program []int64) []byte {
	if len(program) == 0 {
		return []byte{}
	}
	packed := make([]byte, 0, len(program)*2)
	for _, c := range program {
		packed = protowire.AppendVarint(packed, protowire.EncodeZigZag(c))
	}
	b := protowire.AppendTag(make([]byte, 0, len(packed)+8), fieldCells, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

// DecodeBinary decodes a Program message. Both packed and unpacked
// encodings of the cells field are accepted; unknown fields are skipped.
func DecodeBinary(data []byte) ([]int64, error) {
	program := []int64{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, malformed(protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldCells && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, malformed(protowire.ParseError(n))
			}
			data = data[n:]
			for len(packed) > 0 {
				v, m := protowire.ConsumeVarint(packed)
				if m < 0 {
					return nil, malformed(protowire.ParseError(m))
				}
				program = append(program, protowire.DecodeZigZag(v))
				packed = packed[m:]
			}
		case num == fieldCells && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, malformed(protowire.ParseError(n))
			}
			program = append(program, protowire.DecodeZigZag(v))
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, malformed(protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return program, nil
}

func malformed(err error) error {
	return fmt.Errorf("image: %w: %v", ErrMalformed, err)
}
