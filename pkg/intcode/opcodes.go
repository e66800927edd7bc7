package intcode

import "fmt"

// Opcode is the operation selector decoded from the low two decimal
// digits of an instruction cell.
type Opcode int64

const (
	OpAdd         Opcode = 1  // ADD a b -> c
	OpMul         Opcode = 2  // MUL a b -> c
	OpInput       Opcode = 3  // IN -> a
	OpOutput      Opcode = 4  // OUT a
	OpJumpNonZero Opcode = 5  // JNZ a, target
	OpJumpZero    Opcode = 6  // JZ a, target
	OpLessThan    Opcode = 7  // LT a b -> c
	OpEquals      Opcode = 8  // EQ a b -> c
	OpAdjustBase  Opcode = 9  // ARB a
	OpHalt        Opcode = 99 // HALT
)

// noWrite marks an opcode without a write operand.
const noWrite = -1

// OpcodeInfo contains metadata about an opcode.
type OpcodeInfo struct {
	Name     string // Mnemonic used by the disassembler
	Operands int    // Number of parameter cells following the opcode cell
	Write    int    // Index of the operand used as a write target, or -1
}

// opcodeInfoTable maps each opcode to its metadata. Dispatch in the VM
// and decoding both go through this table, so an opcode missing here is
// an unrecognized opcode everywhere.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpAdd:         {"ADD", 3, 2},
	OpMul:         {"MUL", 3, 2},
	OpInput:       {"IN", 1, 0},
	OpOutput:      {"OUT", 1, noWrite},
	OpJumpNonZero: {"JNZ", 2, noWrite},
	OpJumpZero:    {"JZ", 2, noWrite},
	OpLessThan:    {"LT", 3, 2},
	OpEquals:      {"EQ", 3, 2},
	OpAdjustBase:  {"ARB", 1, noWrite},
	OpHalt:        {"HALT", 0, noWrite},
}

// LookupOpcode returns the metadata for op and whether op is defined.
func LookupOpcode(op Opcode) (OpcodeInfo, bool) {
	info, ok := opcodeInfoTable[op]
	return info, ok
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns an OpcodeInfo named "UNKNOWN(n)" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(%d)", int64(op)), Write: noWrite}
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandCount returns the number of parameter cells for this opcode.
func (op Opcode) OperandCount() int {
	return GetOpcodeInfo(op).Operands
}

// InstructionLen returns the width of an instruction in cells (1 + operands).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandCount()
}

// IsJump returns true if this opcode may set the instruction pointer directly.
func (op Opcode) IsJump() bool {
	return op == OpJumpNonZero || op == OpJumpZero
}

// Writes reports whether the opcode stores a result to memory.
func (op Opcode) Writes() bool {
	return GetOpcodeInfo(op).Write != noWrite
}

// AllOpcodes returns every defined opcode in ascending order.
func AllOpcodes() []Opcode {
	return []Opcode{
		OpAdd, OpMul, OpInput, OpOutput, OpJumpNonZero,
		OpJumpZero, OpLessThan, OpEquals, OpAdjustBase, OpHalt,
	}
}

// Mode determines how a raw parameter maps to an operand value or a
// write address.
type Mode uint8

const (
	ModePosition  Mode = 0 // raw value is an address
	ModeImmediate Mode = 1 // raw value is the operand
	ModeRelative  Mode = 2 // raw value is an offset from the relative base
)

func (m Mode) String() string {
	switch m {
	case ModePosition:
		return "position"
	case ModeImmediate:
		return "immediate"
	case ModeRelative:
		return "relative"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

func (m Mode) valid() bool {
	return m <= ModeRelative
}
