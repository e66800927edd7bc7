// Package intcode implements a resumable interpreter for Intcode
// programs: a flat, growable memory of signed integers executed by a
// small instruction set with three parameter modes.
//
// # Execution model
//
// A VM is created from a program image with Load and driven by repeated
// calls to Run. Run executes instructions until one of three outcomes:
//
//   - StatusOutput: an output instruction executed; Outcome.Value holds
//     the value and the instruction pointer has moved past it.
//   - StatusNeedsInput: an input instruction was reached with no value
//     buffered. Nothing was executed; supply a value with ProvideInput
//     and call Run again to retry the same instruction.
//   - StatusHalted: the program reached opcode 99. Later calls keep
//     returning StatusHalted.
//
// Suspension returns control to the caller; the VM never blocks. Callers
// that need bounded execution drive the VM with Step and count, as the
// driver package does.
//
// # Instructions
//
// The low two decimal digits of a cell select the opcode; each higher
// digit gives the mode of one parameter, first parameter first:
//
//	ADD 1  MUL 2  IN 3  OUT 4  JNZ 5  JZ 6  LT 7  EQ 8  ARB 9  HALT 99
//
// Modes are position (0), immediate (1) and relative (2). Memory grows
// with zero cells on any access past its end.
//
// # Faults
//
// Unknown opcodes, invalid modes, immediate-mode write targets and
// negative addresses are reported as *Fault. A faulted VM stays faulted.
//
// # Snapshots
//
// Snapshot and Restore capture and rebuild the full resumable state;
// MarshalState encodes it as canonical CBOR for storage or transport.
package intcode
