package driver

import (
	"strconv"
	"strings"
)

// ASCII renders outputs as text. Values outside 0..127 are written as
// their decimal value in brackets, e.g. "[19690720]".
func ASCII(outputs []int64) string {
	var sb strings.Builder
	for _, v := range outputs {
		if v >= 0 && v < 128 {
			sb.WriteByte(byte(v))
			continue
		}
		sb.WriteByte('[')
		sb.WriteString(strconv.FormatInt(v, 10))
		sb.WriteByte(']')
	}
	return sb.String()
}

// ASCIIInput encodes line as input values terminated by a newline. A
// trailing newline already present in line is not doubled.
func ASCIIInput(line string) []int64 {
	line = strings.TrimSuffix(line, "\n")
	in := make([]int64, 0, len(line)+1)
	for i := 0; i < len(line); i++ {
		in = append(in, int64(line[i]))
	}
	return append(in, '\n')
}

// ASCIILines encodes several lines with ASCIIInput.
func ASCIILines(lines ...string) []int64 {
	var in []int64
	for _, l := range lines {
		in = append(in, ASCIIInput(l)...)
	}
	return in
}
