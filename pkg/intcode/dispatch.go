package intcode

// execFunc applies the effect of one decoded instruction. It is
// responsible for moving IP.
type execFunc func(vm *VM, ins *Instruction) (Outcome, bool, error)

// dispatch is indexed by opcode. Only opcodes present in
// opcodeInfoTable reach it; DecodeCell rejects everything else.
var dispatch [100]execFunc

func init() {
	dispatch[OpAdd] = binaryOp(func(a, b int64) int64 { return a + b })
	dispatch[OpMul] = binaryOp(func(a, b int64) int64 { return a * b })
	dispatch[OpLessThan] = binaryOp(func(a, b int64) int64 { return boolCell(a < b) })
	dispatch[OpEquals] = binaryOp(func(a, b int64) int64 { return boolCell(a == b) })
	dispatch[OpInput] = execInput
	dispatch[OpOutput] = execOutput
	dispatch[OpJumpNonZero] = jumpIf(func(v int64) bool { return v != 0 })
	dispatch[OpJumpZero] = jumpIf(func(v int64) bool { return v == 0 })
	dispatch[OpAdjustBase] = execAdjustBase
	dispatch[OpHalt] = execHalt
}

func boolCell(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// binaryOp builds the handler for "c = f(a, b)" instructions.
func binaryOp(f func(a, b int64) int64) execFunc {
	return func(vm *VM, ins *Instruction) (Outcome, bool, error) {
		a, err := vm.load(ins.Params[0])
		if err != nil {
			return Outcome{}, false, err
		}
		b, err := vm.load(ins.Params[1])
		if err != nil {
			return Outcome{}, false, err
		}
		if err := vm.store(ins.Params[2], f(a, b)); err != nil {
			return Outcome{}, false, err
		}
		vm.ip += ins.Len()
		return Outcome{}, false, nil
	}
}

// jumpIf builds the handler for conditional jumps. A taken jump sets IP
// to the target and skips the normal advance.
func jumpIf(cond func(int64) bool) execFunc {
	return func(vm *VM, ins *Instruction) (Outcome, bool, error) {
		v, err := vm.load(ins.Params[0])
		if err != nil {
			return Outcome{}, false, err
		}
		if !cond(v) {
			vm.ip += ins.Len()
			return Outcome{}, false, nil
		}
		target, err := vm.load(ins.Params[1])
		if err != nil {
			return Outcome{}, false, err
		}
		if target < 0 {
			return Outcome{}, false, ErrNegativeAddress
		}
		vm.ip = target
		return Outcome{}, false, nil
	}
}

// execInput consumes the pending input. Step only calls it when a value
// is buffered.
func execInput(vm *VM, ins *Instruction) (Outcome, bool, error) {
	if err := vm.store(ins.Params[0], vm.input); err != nil {
		return Outcome{}, false, err
	}
	vm.input, vm.hasInput = 0, false
	vm.ip += ins.Len()
	return Outcome{}, false, nil
}

func execOutput(vm *VM, ins *Instruction) (Outcome, bool, error) {
	v, err := vm.load(ins.Params[0])
	if err != nil {
		return Outcome{}, false, err
	}
	vm.ip += ins.Len()
	return Output(v), true, nil
}

func execAdjustBase(vm *VM, ins *Instruction) (Outcome, bool, error) {
	v, err := vm.load(ins.Params[0])
	if err != nil {
		return Outcome{}, false, err
	}
	vm.rb += v
	vm.ip += ins.Len()
	return Outcome{}, false, nil
}

// execHalt leaves IP on the HALT instruction.
func execHalt(vm *VM, ins *Instruction) (Outcome, bool, error) {
	vm.halted = true
	return Halted(), true, nil
}
