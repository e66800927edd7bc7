package intcode

import (
	"errors"
	"fmt"
)

// Program-integrity faults. These are fatal: a VM that reports one will
// keep reporting it on every later call.
var (
	ErrUnknownOpcode   = errors.New("unknown opcode")
	ErrInvalidMode     = errors.New("invalid parameter mode")
	ErrImmediateWrite  = errors.New("immediate mode used as write target")
	ErrNegativeAddress = errors.New("negative memory address")

	// ErrAddressOutOfRange is reported for addresses at or past the VM's
	// memory limit. It is a resource fault, not an Intcode error, but is
	// just as sticky.
	ErrAddressOutOfRange = errors.New("memory address past limit")
)

// ErrInputPending is returned by ProvideInput when a value is already
// buffered. It is a caller-contract violation; the VM state is unchanged.
var ErrInputPending = errors.New("input already pending")

// Fault describes a program-integrity fault at a specific instruction.
type Fault struct {
	IP   int64 // address of the faulting instruction
	Cell int64 // raw instruction cell at IP
	Err  error // one of the Err* sentinels above
}

func (f *Fault) Error() string {
	return fmt.Sprintf("intcode: fault at ip=%d (cell %d): %v", f.IP, f.Cell, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// IsFault reports whether err is (or wraps) a program-integrity fault.
func IsFault(err error) bool {
	var f *Fault
	return errors.As(err, &f)
}
