package intcode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of program. Decoding is
// linear from address 0; cells that do not decode as an instruction are
// listed as DATA and skipped one at a time.
func Disassemble(program []int64) string {
	return DisassembleWithName(program, "")
}

// DisassembleWithName returns a listing with a name header.
func DisassembleWithName(program []int64, name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; Intcode program, %d cells\n\n", len(program)))

	mem := Memory(program)
	for addr := int64(0); addr < int64(len(mem)); {
		line, width := DisassembleAt(mem, addr)
		sb.WriteString(fmt.Sprintf("%04d  %s\n", addr, line))
		addr += int64(width)
	}

	return sb.String()
}

// DisassembleAt formats the instruction at addr and returns its width in
// cells. Undecodable cells are formatted as DATA with width 1.
func DisassembleAt(mem []int64, addr int64) (string, int) {
	ins, err := Decode(Memory(mem), addr)
	if err != nil {
		return fmt.Sprintf("DATA  %d", ins.Cell), 1
	}
	return FormatInstruction(ins), int(ins.Len())
}

// FormatInstruction renders a decoded instruction as "MNEMONIC op, op".
func FormatInstruction(ins Instruction) string {
	info := GetOpcodeInfo(ins.Op)
	if len(ins.Params) == 0 {
		return info.Name
	}
	operands := make([]string, len(ins.Params))
	for i, p := range ins.Params {
		operands[i] = FormatParam(p)
	}
	return fmt.Sprintf("%-4s  %s", info.Name, strings.Join(operands, ", "))
}

// FormatParam renders a parameter: [n] for position, #n for immediate,
// [rb+n] for relative.
func FormatParam(p Param) string {
	switch p.Mode {
	case ModePosition:
		return fmt.Sprintf("[%d]", p.Raw)
	case ModeImmediate:
		return fmt.Sprintf("#%d", p.Raw)
	case ModeRelative:
		if p.Raw < 0 {
			return fmt.Sprintf("[rb%d]", p.Raw)
		}
		return fmt.Sprintf("[rb+%d]", p.Raw)
	default:
		return fmt.Sprintf("?%d", p.Raw)
	}
}
