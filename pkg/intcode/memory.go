package intcode

// Memory is the flat, zero-indexed integer store of a VM. It behaves as
// if infinite: accesses past the end grow it with zero cells first.
type Memory []int64

// Memory ceilings, in cells. A VM faults with ErrAddressOutOfRange rather
// than grow to or past its limit.
const (
	DefaultMemoryLimit int64 = 1 << 24 // 128 MiB
	MaxMemoryLimit     int64 = 1<<31 - 1
)

// ensure grows m so that addr is a valid index. Growth at least doubles
// the backing array to keep repeated far writes amortized, but never
// reserves past limit.
func (m *Memory) ensure(addr, limit int64) error {
	if addr < 0 {
		return ErrNegativeAddress
	}
	if addr < int64(len(*m)) {
		return nil
	}
	if addr >= limit {
		return ErrAddressOutOfRange
	}
	need := addr + 1
	if need <= int64(cap(*m)) {
		*m = (*m)[:need]
		return nil
	}
	newCap := min(int64(cap(*m))*2, limit)
	if newCap < need {
		newCap = need
	}
	grown := make(Memory, need, newCap)
	copy(grown, *m)
	*m = grown
	return nil
}

// Read returns the value at addr, growing memory if needed. Addresses at
// or past DefaultMemoryLimit fail with ErrAddressOutOfRange.
func (m *Memory) Read(addr int64) (int64, error) {
	return m.read(addr, DefaultMemoryLimit)
}

// Write stores v at addr, growing memory if needed.
func (m *Memory) Write(addr, v int64) error {
	return m.write(addr, v, DefaultMemoryLimit)
}

func (m *Memory) read(addr, limit int64) (int64, error) {
	if err := m.ensure(addr, limit); err != nil {
		return 0, err
	}
	return (*m)[addr], nil
}

func (m *Memory) write(addr, v, limit int64) error {
	if err := m.ensure(addr, limit); err != nil {
		return err
	}
	(*m)[addr] = v
	return nil
}

// Peek returns the value at addr without growing memory. Cells past the
// end read as zero, as they would after growth.
func (m Memory) Peek(addr int64) int64 {
	if addr < 0 || addr >= int64(len(m)) {
		return 0
	}
	return m[addr]
}

// Clone returns an independent copy.
func (m Memory) Clone() Memory {
	c := make(Memory, len(m))
	copy(c, m)
	return c
}
