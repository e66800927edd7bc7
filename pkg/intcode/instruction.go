package intcode

// Param is a raw parameter cell paired with its addressing mode.
type Param struct {
	Raw  int64
	Mode Mode
}

// Instruction is a decoded instruction: opcode, parameters and the
// address it was decoded from.
type Instruction struct {
	Addr   int64
	Cell   int64
	Op     Opcode
	Params []Param
}

// Len returns the instruction width in cells.
func (ins Instruction) Len() int64 {
	return int64(1 + len(ins.Params))
}

// DecodeCell splits an instruction cell into its opcode and the modes
// for n operands, padding with position mode. Mode digits beyond n are
// ignored.
func DecodeCell(cell int64) (Opcode, [3]Mode, error) {
	var modes [3]Mode
	if cell < 0 {
		return 0, modes, ErrUnknownOpcode
	}
	op := Opcode(cell % 100)
	info, ok := LookupOpcode(op)
	if !ok {
		return op, modes, ErrUnknownOpcode
	}
	digits := cell / 100
	for i := 0; i < info.Operands; i++ {
		m := Mode(digits % 10)
		if !m.valid() {
			return op, modes, ErrInvalidMode
		}
		if i == info.Write && m == ModeImmediate {
			return op, modes, ErrImmediateWrite
		}
		modes[i] = m
		digits /= 10
	}
	return op, modes, nil
}

// Decode reads the instruction at addr from mem without growing it.
// Parameter cells past the end of mem read as zero.
func Decode(mem Memory, addr int64) (Instruction, error) {
	if addr < 0 {
		return Instruction{Addr: addr}, ErrNegativeAddress
	}
	cell := mem.Peek(addr)
	op, modes, err := DecodeCell(cell)
	ins := Instruction{Addr: addr, Cell: cell, Op: op}
	if err != nil {
		return ins, err
	}
	n := op.OperandCount()
	ins.Params = make([]Param, n)
	for i := 0; i < n; i++ {
		ins.Params[i] = Param{Raw: mem.Peek(addr + 1 + int64(i)), Mode: modes[i]}
	}
	return ins, nil
}
