package vm

import "github.com/holiman/uint256"

// Memory implements the byte-addressable, word-expanded EVM memory.
type Memory struct {
	store       []byte
	lastGasCost uint64
}

// NewMemory returns an empty memory.
func NewMemory() *Memory {
	return &Memory{}
}

// Set copies value into memory at offset. The region must already be
// allocated by Resize.
func (m *Memory) Set(offset, size uint64, value []byte) {
	if size == 0 {
		return
	}
	if offset+size > uint64(len(m.store)) {
		panic("memory: out of bounds write")
	}
	copy(m.store[offset:offset+size], value)
}

// Set32 writes val as a 32-byte big-endian word at offset.
func (m *Memory) Set32(offset uint64, val *uint256.Int) {
	if offset+32 > uint64(len(m.store)) {
		panic("memory: out of bounds write")
	}
	b32 := val.Bytes32()
	copy(m.store[offset:], b32[:])
}

// Resize grows memory to size bytes. Callers round size to words.
func (m *Memory) Resize(size uint64) {
	if uint64(len(m.store)) < size {
		m.store = append(m.store, make([]byte, size-uint64(len(m.store)))...)
	}
}

// GetCopy returns a copy of [offset, offset+size).
func (m *Memory) GetCopy(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	out := make([]byte, size)
	copy(out, m.store[offset:offset+size])
	return out
}

// GetPtr returns a slice aliasing [offset, offset+size).
func (m *Memory) GetPtr(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	return m.store[offset : offset+size]
}

// Copy moves size bytes from src to dst within memory (MCOPY).
func (m *Memory) Copy(dst, src, size uint64) {
	if size == 0 {
		return
	}
	copy(m.store[dst:], m.store[src:src+size])
}

// Len returns the allocated size in bytes.
func (m *Memory) Len() int { return len(m.store) }

// Data returns the backing slice.
func (m *Memory) Data() []byte { return m.store }
