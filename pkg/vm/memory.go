package vm

import "fmt"

// Memory is the flat, zero-indexed integer store a program runs in.
// Its extent is fixed by the loaded program; every access is bounds-checked.
type Memory struct {
	cells []int64
}

// NewMemory creates a memory image holding a copy of cells.
func NewMemory(cells []int64) *Memory {
	m := &Memory{cells: make([]int64, len(cells))}
	copy(m.cells, cells)
	return m
}

// Len returns the number of addressable cells.
func (m *Memory) Len() int {
	return len(m.cells)
}

// Read returns the value stored at addr.
func (m *Memory) Read(addr int64) (int64, error) {
	if addr < 0 || addr >= int64(len(m.cells)) {
		return 0, fmt.Errorf("%w: read %d (size %d)", ErrOutOfBounds, addr, len(m.cells))
	}
	return m.cells[addr], nil
}

// Write stores value at addr.
func (m *Memory) Write(addr int64, value int64) error {
	if addr < 0 || addr >= int64(len(m.cells)) {
		return fmt.Errorf("%w: write %d (size %d)", ErrOutOfBounds, addr, len(m.cells))
	}
	m.cells[addr] = value
	return nil
}

// Snapshot returns a copy of the current contents.
func (m *Memory) Snapshot() []int64 {
	out := make([]int64, len(m.cells))
	copy(out, m.cells)
	return out
}
