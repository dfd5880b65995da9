package vm

import (
	"sync"

	"github.com/holiman/uint256"
)

const stackLimit = 1024

var stackPool = sync.Pool{
	New: func() any {
		return &Stack{data: make([]uint256.Int, 0, 16)}
	},
}

// Stack is the EVM operand stack (max 1024 items, 256-bit words).
type Stack struct {
	data []uint256.Int
}

// newStack takes a stack from the pool. Release it with returnStack.
func newStack() *Stack {
	return stackPool.Get().(*Stack)
}

func returnStack(s *Stack) {
	s.data = s.data[:0]
	stackPool.Put(s)
}

// Data returns the underlying items, bottom first. The slice is only valid
// until the next instruction executes.
func (st *Stack) Data() []uint256.Int { return st.data }

// Len returns the number of items on the stack.
func (st *Stack) Len() int { return len(st.data) }

func (st *Stack) push(val *uint256.Int) {
	st.data = append(st.data, *val)
}

func (st *Stack) pop() uint256.Int {
	ret := st.data[len(st.data)-1]
	st.data = st.data[:len(st.data)-1]
	return ret
}

// peek returns a pointer to the top item so instructions can write results
// in place.
func (st *Stack) peek() *uint256.Int {
	return &st.data[len(st.data)-1]
}

// Back returns the nth item from the top (0 = top).
func (st *Stack) Back(n int) *uint256.Int {
	return &st.data[len(st.data)-n-1]
}

func (st *Stack) swap(n int) {
	top := len(st.data) - 1
	st.data[top], st.data[top-n] = st.data[top-n], st.data[top]
}

func (st *Stack) dup(n int) {
	st.push(&st.data[len(st.data)-n])
}
