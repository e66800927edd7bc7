package driver

import (
	"context"
	"errors"
	"testing"

	"github.com/chazu/intcode/pkg/intcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoTwice reads two values and outputs each.
var echoTwice = []int64{3, 0, 4, 0, 3, 0, 4, 0, 99}

func TestDriverFeedsQueuedInputs(t *testing.T) {
	res, err := New(intcode.Load(echoTwice), 5, -6).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{5, -6}, res.Outputs)
	assert.Equal(t, intcode.StatusHalted, res.Status)
	assert.Equal(t, uint64(5), res.Steps)
}

func TestDriverInputExhaustedIsResumable(t *testing.T) {
	vm := intcode.Load(echoTwice)
	d := New(vm, 1)

	res, err := d.Run(context.Background())
	assert.ErrorIs(t, err, ErrInputExhausted)
	assert.Equal(t, intcode.StatusNeedsInput, res.Status)
	assert.Equal(t, []int64{1}, res.Outputs)
	assert.Equal(t, int64(4), vm.IP())

	d.Inputs = []int64{2}
	res, err = d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, res.Outputs)
	assert.True(t, vm.Halted())
}

func TestDriverInputFunc(t *testing.T) {
	calls := 0
	d := &Driver{
		VM: intcode.Load(echoTwice),
		Input: func(ctx context.Context) (int64, error) {
			calls++
			return int64(calls * 10), nil
		},
	}
	res, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20}, res.Outputs)
}

func TestDriverStepBudget(t *testing.T) {
	loop := []int64{1105, 1, 0}
	d := &Driver{VM: intcode.Load(loop), MaxSteps: 100}

	res, err := d.Run(context.Background())
	assert.ErrorIs(t, err, ErrStepBudget)
	assert.Equal(t, uint64(100), res.Steps)
	assert.Zero(t, res.Status)
}

func TestDriverStepBudgetExactFit(t *testing.T) {
	program := []int64{1101, 1, 1, 0, 99}

	res, err := (&Driver{VM: intcode.Load(program), MaxSteps: 2}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, intcode.StatusHalted, res.Status)

	_, err = (&Driver{VM: intcode.Load(program), MaxSteps: 1}).Run(context.Background())
	assert.ErrorIs(t, err, ErrStepBudget)
}

func TestDriverCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(intcode.Load([]int64{1105, 1, 0})).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDriverFaultPropagates(t *testing.T) {
	_, err := New(intcode.Load([]int64{104, 1, 55})).Run(context.Background())
	require.Error(t, err)
	assert.True(t, intcode.IsFault(err))
	assert.ErrorIs(t, err, intcode.ErrUnknownOpcode)
}

func TestDriverOnOutputStops(t *testing.T) {
	stop := errors.New("enough")
	d := New(intcode.Load([]int64{104, 1, 104, 2, 99}))
	d.OnOutput = func(ctx context.Context, v int64) error {
		return stop
	}

	res, err := d.Run(context.Background())
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, []int64{1}, res.Outputs)
}

func TestRunProgramQuine(t *testing.T) {
	quine := []int64{109, 1, 204, -1, 1001, 100, 1, 100, 1008, 100, 16, 101, 1006, 101, 0, 99}
	out, err := RunProgram(context.Background(), quine)
	require.NoError(t, err)
	assert.Equal(t, quine, out)
}

func TestRunProgramLargeOutput(t *testing.T) {
	out, err := RunProgram(context.Background(), []int64{1102, 34915192, 34915192, 7, 4, 7, 99, 0})
	require.NoError(t, err)
	assert.Equal(t, []int64{1219070632396864}, out)
}

func TestASCII(t *testing.T) {
	assert.Equal(t, "hi\n", ASCII([]int64{'h', 'i', '\n'}))
	assert.Equal(t, "ok[19690720]", ASCII([]int64{'o', 'k', 19690720}))
	assert.Equal(t, "[-1]", ASCII([]int64{-1}))
}

func TestASCIIInput(t *testing.T) {
	assert.Equal(t, []int64{'N', 'O', 'T', ' ', 'A', '\n'}, ASCIIInput("NOT A"))
	assert.Equal(t, []int64{'W', '\n'}, ASCIIInput("W\n"))
	assert.Equal(t, []int64{'A', '\n', 'B', '\n'}, ASCIILines("A", "B"))
}

func TestNextStopsAtSuspension(t *testing.T) {
	vm := intcode.Load([]int64{104, 3, 104, 4, 99})

	out, err := Next(context.Background(), vm, 0)
	require.NoError(t, err)
	assert.Equal(t, intcode.Output(3), out)

	out, err = Next(context.Background(), vm, 1)
	require.NoError(t, err)
	assert.Equal(t, intcode.Output(4), out)
}

func TestNextBudgetLeavesVMResumable(t *testing.T) {
	// Counts down from 3 in cell 10, then outputs it.
	vm := intcode.Load([]int64{1001, 10, -1, 10, 1005, 10, 0, 4, 10, 99, 3})

	_, err := Next(context.Background(), vm, 2)
	assert.ErrorIs(t, err, ErrStepBudget)
	assert.Nil(t, vm.Fault())

	out, err := Next(context.Background(), vm, 0)
	require.NoError(t, err)
	assert.Equal(t, intcode.Output(0), out)
}
