package intcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTripResumes(t *testing.T) {
	// Reads two inputs and outputs their sum.
	program := []int64{109, 100, 203, 0, 203, 1, 22201, 0, 1, 2, 204, 2, 99}
	vm := Load(program)

	out, err := vm.Run()
	require.NoError(t, err)
	require.Equal(t, StatusNeedsInput, out.Status)
	require.NoError(t, vm.ProvideInput(40))

	state, err := vm.Snapshot()
	require.NoError(t, err)
	data, err := MarshalState(state)
	require.NoError(t, err)

	decoded, err := UnmarshalState(data)
	require.NoError(t, err)
	assert.Equal(t, state, decoded)

	restored, err := Restore(decoded)
	require.NoError(t, err)
	assert.Equal(t, vm.IP(), restored.IP())
	assert.Equal(t, vm.RelativeBase(), restored.RelativeBase())
	assert.Equal(t, vm.Steps(), restored.Steps())

	v, ok := restored.PendingInput()
	assert.True(t, ok)
	assert.Equal(t, int64(40), v)

	assert.Equal(t, []int64{42}, runAll(t, restored, 2))

	// The original is untouched by the restored copy's progress.
	assert.Equal(t, int64(2), vm.IP())
}

func TestSnapshotGrownMemory(t *testing.T) {
	// Memory grows well past the CBOR decoder's default array cap.
	vm := Load([]int64{1101, 7, 0, 200000, 99})
	assert.Empty(t, runAll(t, vm))
	require.Equal(t, 200001, vm.Len())

	state, err := vm.Snapshot()
	require.NoError(t, err)
	data, err := MarshalState(state)
	require.NoError(t, err)

	decoded, err := UnmarshalState(data)
	require.NoError(t, err)
	restored, err := Restore(decoded)
	require.NoError(t, err)
	assert.Equal(t, 200001, restored.Len())
	assert.Equal(t, int64(7), restored.Peek(200000))
	assert.True(t, restored.Halted())
}

func TestSnapshotIsDeterministic(t *testing.T) {
	vm := Load([]int64{1101, 1, 2, 9, 3, 0, 99})
	_, err := vm.Run()
	require.NoError(t, err)

	s1, err := vm.Snapshot()
	require.NoError(t, err)
	s2, err := vm.Snapshot()
	require.NoError(t, err)

	a, err := MarshalState(s1)
	require.NoError(t, err)
	b, err := MarshalState(s2)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSnapshotHaltedVM(t *testing.T) {
	vm := Load([]int64{99})
	runAll(t, vm)

	s, err := vm.Snapshot()
	require.NoError(t, err)
	restored, err := Restore(s)
	require.NoError(t, err)

	out, err := restored.Run()
	require.NoError(t, err)
	assert.Equal(t, Halted(), out)
}

func TestSnapshotFaultedVM(t *testing.T) {
	vm := Load([]int64{77})
	_, err := vm.Run()
	require.Error(t, err)

	_, err = vm.Snapshot()
	assert.ErrorIs(t, err, ErrUnknownOpcode)
}

func TestRestoreRejectsBadState(t *testing.T) {
	tests := []struct {
		name  string
		state *State
	}{
		{"nil", nil},
		{"version", &State{Version: 99, Memory: []int64{99}}},
		{"negative ip", &State{Version: StateVersion, Memory: []int64{99}, IP: -1}},
		{"stray input", &State{Version: StateVersion, Memory: []int64{99}, Input: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Restore(tt.state)
			assert.ErrorIs(t, err, ErrBadState)
		})
	}
}

func TestUnmarshalStateGarbage(t *testing.T) {
	_, err := UnmarshalState([]byte{0xff, 0x00, 0x13})
	assert.Error(t, err)
}
