// Package driver runs Intcode VMs to completion or to a stopping point.
//
// The intcode package only suspends; it never decides what happens next.
// A Driver owns that loop: it feeds queued inputs on NeedsInput, collects
// outputs, enforces a step budget and honors context cancellation.
package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/chazu/intcode/pkg/intcode"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("intcode.driver")

var (
	// ErrInputExhausted is returned when the program asks for input and
	// none is left. The VM is still resumable.
	ErrInputExhausted = errors.New("input exhausted")

	// ErrStepBudget is returned when MaxSteps instructions ran without
	// the program halting.
	ErrStepBudget = errors.New("step budget exceeded")
)

// ctxCheckInterval is how many instructions run between context checks.
const ctxCheckInterval = 1024

// InputFunc supplies the next input value once the queue is empty. It
// may block; it should return ErrInputExhausted when no more input will
// arrive.
type InputFunc func(ctx context.Context) (int64, error)

// OutputFunc receives each output value as it is produced. A non-nil
// error stops the run.
type OutputFunc func(ctx context.Context, v int64) error

// Driver runs a VM with a queue of inputs.
type Driver struct {
	VM *intcode.VM

	// Inputs are consumed front first.
	Inputs []int64

	// Input, if set, is consulted when Inputs is empty.
	Input InputFunc

	// OnOutput, if set, is called for each output in addition to it
	// being collected into the Result.
	OnOutput OutputFunc

	// MaxSteps bounds the instructions executed by one Run. Zero means
	// unbounded.
	MaxSteps uint64
}

// Result describes where a run stopped.
type Result struct {
	Outputs []int64

	// Status is StatusHalted after a clean halt and StatusNeedsInput
	// when the run stopped for lack of input. It is zero when the run
	// stopped on an error.
	Status intcode.Status

	// Steps is the number of instructions executed by this run.
	Steps uint64
}

// New returns a driver for vm with the given input queue.
func New(vm *intcode.VM, inputs ...int64) *Driver {
	return &Driver{VM: vm, Inputs: inputs}
}

// Run drives the VM until it halts, runs out of input, exceeds its step
// budget, faults or ctx is done. The partial Result is returned in every
// case.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	res := &Result{}
	start := d.VM.Steps()
	defer func() {
		res.Steps = d.VM.Steps() - start
	}()

	for {
		var budget uint64
		if d.MaxSteps > 0 {
			used := d.VM.Steps() - start
			if used >= d.MaxSteps && !d.VM.Halted() {
				return res, fmt.Errorf("%w: %d instructions at ip=%d", ErrStepBudget, d.MaxSteps, d.VM.IP())
			}
			budget = d.MaxSteps - used
		}

		out, err := Next(ctx, d.VM, budget)
		if err != nil {
			return res, err
		}

		switch out.Status {
		case intcode.StatusOutput:
			res.Outputs = append(res.Outputs, out.Value)
			if d.OnOutput != nil {
				if err := d.OnOutput(ctx, out.Value); err != nil {
					return res, err
				}
			}

		case intcode.StatusNeedsInput:
			v, err := d.next(ctx)
			if err != nil {
				if errors.Is(err, ErrInputExhausted) {
					res.Status = intcode.StatusNeedsInput
				}
				return res, err
			}
			if err := d.VM.ProvideInput(v); err != nil {
				return res, err
			}

		case intcode.StatusHalted:
			res.Status = intcode.StatusHalted
			log.Debug("program halted", "steps", d.VM.Steps()-start, "outputs", len(res.Outputs))
			return res, nil
		}
	}
}

// Next runs vm to its next suspension like (*intcode.VM).Run, but stops
// with ErrStepBudget after maxSteps instructions (zero means unbounded)
// and checks ctx every ctxCheckInterval instructions. The VM stays
// resumable after either stop.
func Next(ctx context.Context, vm *intcode.VM, maxSteps uint64) (intcode.Outcome, error) {
	start := vm.Steps()
	for i := 0; ; i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return intcode.Outcome{}, err
			}
		}
		if maxSteps > 0 && vm.Steps()-start >= maxSteps && !vm.Halted() {
			return intcode.Outcome{}, fmt.Errorf("%w: %d instructions at ip=%d", ErrStepBudget, maxSteps, vm.IP())
		}

		out, suspended, err := vm.Step()
		if err != nil {
			return out, err
		}
		if suspended {
			return out, nil
		}
	}
}

func (d *Driver) next(ctx context.Context) (int64, error) {
	if len(d.Inputs) > 0 {
		v := d.Inputs[0]
		d.Inputs = d.Inputs[1:]
		return v, nil
	}
	if d.Input != nil {
		return d.Input(ctx)
	}
	return 0, ErrInputExhausted
}

// RunProgram loads program and drives it with inputs.
func RunProgram(ctx context.Context, program []int64, inputs ...int64) ([]int64, error) {
	res, err := New(intcode.Load(program), inputs...).Run(ctx)
	return res.Outputs, err
}
