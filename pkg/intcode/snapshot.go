package intcode

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// StateVersion is the current snapshot format version.
const StateVersion = 1

// ErrBadState is returned when a snapshot cannot be restored.
var ErrBadState = errors.New("invalid snapshot state")

// State is the complete resumable state of a VM. Faulted VMs cannot be
// snapshotted; a fault is not resumable.
type State struct {
	Version      int     `cbor:"1,keyasint"`
	Memory       []int64 `cbor:"2,keyasint"`
	IP           int64   `cbor:"3,keyasint"`
	RelativeBase int64   `cbor:"4,keyasint"`
	Input        int64   `cbor:"5,keyasint,omitempty"`
	HasInput     bool    `cbor:"6,keyasint,omitempty"`
	Halted       bool    `cbor:"7,keyasint,omitempty"`
	Steps        uint64  `cbor:"8,keyasint,omitempty"`
}

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("intcode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em

	// The library default caps arrays at 131072 elements; memory may
	// legitimately grow to MaxMemoryLimit cells.
	dm, err := cbor.DecOptions{MaxArrayElements: int(MaxMemoryLimit)}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("intcode: failed to create CBOR dec mode: %v", err))
	}
	cborDecMode = dm
}

// Snapshot captures the VM state. It fails if the VM has faulted.
func (vm *VM) Snapshot() (*State, error) {
	if vm.fault != nil {
		return nil, fmt.Errorf("intcode: snapshot of faulted vm: %w", vm.fault)
	}
	return &State{
		Version:      StateVersion,
		Memory:       vm.mem.Clone(),
		IP:           vm.ip,
		RelativeBase: vm.rb,
		Input:        vm.input,
		HasInput:     vm.hasInput,
		Halted:       vm.halted,
		Steps:        vm.steps,
	}, nil
}

// Restore builds a VM from a snapshot. The state's memory is copied.
func Restore(s *State) (*VM, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil state", ErrBadState)
	}
	if s.Version != StateVersion {
		return nil, fmt.Errorf("%w: version %d, want %d", ErrBadState, s.Version, StateVersion)
	}
	if s.IP < 0 {
		return nil, fmt.Errorf("%w: negative ip %d", ErrBadState, s.IP)
	}
	if !s.HasInput && s.Input != 0 {
		return nil, fmt.Errorf("%w: input value without pending flag", ErrBadState)
	}
	vm := Load(s.Memory)
	vm.ip = s.IP
	vm.rb = s.RelativeBase
	vm.input = s.Input
	vm.hasInput = s.HasInput
	vm.halted = s.Halted
	vm.steps = s.Steps
	return vm, nil
}

// MarshalState serializes a State to canonical CBOR.
func MarshalState(s *State) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalState deserializes a State from CBOR bytes.
func UnmarshalState(data []byte) (*State, error) {
	var s State
	if err := cborDecMode.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("intcode: unmarshal state: %w", err)
	}
	return &s, nil
}
