package intcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisassemble(t *testing.T) {
	program := []int64{109, 10, 21101, 3, -4, 5, 1005, 7, 2, 3, 0, 99, 42}
	got := Disassemble(program)

	want := []string{
		"; Intcode program, 13 cells",
		"",
		"0000  ARB   #10",
		"0002  ADD   #3, #-4, [rb+5]",
		"0006  JNZ   [7], #2",
		"0009  IN    [0]",
		"0011  HALT",
		"0012  DATA  42",
	}
	assert.Equal(t, strings.Join(want, "\n")+"\n", got)
}

func TestDisassembleWithName(t *testing.T) {
	got := DisassembleWithName([]int64{99}, "halt")
	assert.True(t, strings.HasPrefix(got, "; === halt ===\n"))
	assert.Contains(t, got, "0000  HALT\n")
}

func TestDisassembleAtUndecodable(t *testing.T) {
	line, width := DisassembleAt([]int64{11101, 0, 0, 0}, 0)
	assert.Equal(t, "DATA  11101", line)
	assert.Equal(t, 1, width)

	line, width = DisassembleAt([]int64{4, 3}, 0)
	assert.Equal(t, "OUT   [3]", line)
	assert.Equal(t, 2, width)
}

func TestFormatParam(t *testing.T) {
	assert.Equal(t, "[12]", FormatParam(Param{Raw: 12, Mode: ModePosition}))
	assert.Equal(t, "#-3", FormatParam(Param{Raw: -3, Mode: ModeImmediate}))
	assert.Equal(t, "[rb+0]", FormatParam(Param{Raw: 0, Mode: ModeRelative}))
	assert.Equal(t, "[rb-6]", FormatParam(Param{Raw: -6, Mode: ModeRelative}))
}
