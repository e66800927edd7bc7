package intcode

import "fmt"

// Status tags the reason Run returned control to its caller.
type Status uint8

const (
	StatusOutput     Status = iota + 1 // an output instruction produced Value
	StatusNeedsInput                   // an input instruction found nothing pending
	StatusHalted                       // the program reached HALT
)

func (s Status) String() string {
	switch s {
	case StatusOutput:
		return "output"
	case StatusNeedsInput:
		return "needs-input"
	case StatusHalted:
		return "halted"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Outcome is the tagged result of a suspension.
type Outcome struct {
	Status Status
	Value  int64 // set only for StatusOutput
}

// Output returns an output outcome carrying v.
func Output(v int64) Outcome { return Outcome{Status: StatusOutput, Value: v} }

// NeedsInput returns the input-wait outcome.
func NeedsInput() Outcome { return Outcome{Status: StatusNeedsInput} }

// Halted returns the terminal outcome.
func Halted() Outcome { return Outcome{Status: StatusHalted} }

func (o Outcome) String() string {
	if o.Status == StatusOutput {
		return fmt.Sprintf("output(%d)", o.Value)
	}
	return o.Status.String()
}

// Tracer observes each instruction just before it executes.
type Tracer interface {
	Trace(ins Instruction, relativeBase int64)
}

// TracerFunc adapts a function to the Tracer interface.
type TracerFunc func(ins Instruction, relativeBase int64)

func (f TracerFunc) Trace(ins Instruction, relativeBase int64) { f(ins, relativeBase) }

// VM is a resumable Intcode interpreter. All state is owned by the
// instance; a VM is not safe for concurrent use, but separate VMs share
// nothing.
type VM struct {
	mem   Memory
	limit int64 // Memory ceiling in cells
	ip    int64 // Instruction pointer
	rb    int64 // Relative base

	input    int64 // Pending input value, valid when hasInput
	hasInput bool

	halted bool
	fault  error  // Sticky program-integrity fault
	steps  uint64 // Instructions executed

	tracer Tracer
}

// Load creates a VM whose memory is a copy of program.
func Load(program []int64) *VM {
	mem := make(Memory, len(program))
	copy(mem, program)
	return &VM{mem: mem, limit: DefaultMemoryLimit}
}

// SetMemoryLimit bounds how far memory may grow. Accesses at or past n
// cells fault with ErrAddressOutOfRange. n <= 0 restores
// DefaultMemoryLimit; n is capped at MaxMemoryLimit. Cells that already
// exist stay addressable.
func (vm *VM) SetMemoryLimit(n int64) {
	switch {
	case n <= 0:
		n = DefaultMemoryLimit
	case n > MaxMemoryLimit:
		n = MaxMemoryLimit
	}
	vm.limit = n
}

// MemoryLimit returns the memory ceiling in cells.
func (vm *VM) MemoryLimit() int64 { return vm.limit }

// SetTracer attaches t (or detaches it when nil).
func (vm *VM) SetTracer(t Tracer) {
	vm.tracer = t
}

// ProvideInput buffers v for the next input instruction. It fails with
// ErrInputPending if a value is already buffered.
func (vm *VM) ProvideInput(v int64) error {
	if vm.hasInput {
		return ErrInputPending
	}
	vm.input = v
	vm.hasInput = true
	return nil
}

// Run executes until the program outputs a value, needs input, halts,
// or faults. Calling Run again resumes exactly where it stopped.
func (vm *VM) Run() (Outcome, error) {
	for {
		out, suspended, err := vm.Step()
		if err != nil {
			return Outcome{}, err
		}
		if suspended {
			return out, nil
		}
	}
}

// Step executes at most one instruction. suspended is true when the
// instruction produced an outcome Run would return: an output, an input
// wait (nothing executed), or a halt.
func (vm *VM) Step() (out Outcome, suspended bool, err error) {
	if vm.fault != nil {
		return Outcome{}, false, vm.fault
	}
	if vm.halted {
		return Halted(), true, nil
	}

	ins, err := vm.fetch()
	if err != nil {
		return vm.fail(ins.Cell, err)
	}
	// An input wait must not touch memory, so operands come after.
	if ins.Op == OpInput && !vm.hasInput {
		return NeedsInput(), true, nil
	}
	if err := vm.fetchOperands(&ins); err != nil {
		return vm.fail(ins.Cell, err)
	}

	if vm.tracer != nil {
		vm.tracer.Trace(ins, vm.rb)
	}
	vm.steps++

	out, suspended, err = dispatch[ins.Op](vm, &ins)
	if err != nil {
		return vm.fail(ins.Cell, err)
	}
	return out, suspended, nil
}

// fetch decodes the instruction cell at IP. Fetching past the end grows
// memory like any other access.
func (vm *VM) fetch() (Instruction, error) {
	cell, err := vm.mem.read(vm.ip, vm.limit)
	if err != nil {
		return Instruction{Addr: vm.ip}, err
	}
	ins := Instruction{Addr: vm.ip, Cell: cell}
	op, modes, err := DecodeCell(cell)
	ins.Op = op
	if err != nil {
		return ins, err
	}
	ins.Params = make([]Param, op.OperandCount())
	for i := range ins.Params {
		ins.Params[i].Mode = modes[i]
	}
	return ins, nil
}

// fetchOperands reads the raw operand cells following the instruction.
func (vm *VM) fetchOperands(ins *Instruction) error {
	for i := range ins.Params {
		raw, err := vm.mem.read(vm.ip+1+int64(i), vm.limit)
		if err != nil {
			return err
		}
		ins.Params[i].Raw = raw
	}
	return nil
}

func (vm *VM) fail(cell int64, err error) (Outcome, bool, error) {
	vm.fault = &Fault{IP: vm.ip, Cell: cell, Err: err}
	return Outcome{}, false, vm.fault
}

// load resolves a read operand to its value.
func (vm *VM) load(p Param) (int64, error) {
	switch p.Mode {
	case ModeImmediate:
		return p.Raw, nil
	case ModePosition:
		return vm.mem.read(p.Raw, vm.limit)
	case ModeRelative:
		return vm.mem.read(vm.rb+p.Raw, vm.limit)
	}
	return 0, ErrInvalidMode
}

// store resolves a write operand to an address and writes v there.
func (vm *VM) store(p Param, v int64) error {
	switch p.Mode {
	case ModePosition:
		return vm.mem.write(p.Raw, v, vm.limit)
	case ModeRelative:
		return vm.mem.write(vm.rb+p.Raw, v, vm.limit)
	case ModeImmediate:
		return ErrImmediateWrite
	}
	return ErrInvalidMode
}

// IP returns the instruction pointer.
func (vm *VM) IP() int64 { return vm.ip }

// RelativeBase returns the relative base.
func (vm *VM) RelativeBase() int64 { return vm.rb }

// Steps returns the number of instructions executed so far.
func (vm *VM) Steps() uint64 { return vm.steps }

// Halted reports whether the program has reached HALT.
func (vm *VM) Halted() bool { return vm.halted }

// Fault returns the sticky fault, or nil.
func (vm *VM) Fault() error { return vm.fault }

// PendingInput returns the buffered input value, if any.
func (vm *VM) PendingInput() (int64, bool) { return vm.input, vm.hasInput }

// Len returns the current memory length.
func (vm *VM) Len() int { return len(vm.mem) }

// Peek returns the value at addr without growing memory.
func (vm *VM) Peek(addr int64) int64 { return vm.mem.Peek(addr) }

// Memory returns a copy of the current memory.
func (vm *VM) Memory() Memory { return vm.mem.Clone() }
