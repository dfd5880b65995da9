package vm

import (
	"github.com/eth2030/evmcore/core/types"
	"github.com/holiman/uint256"
)

// CallKind is the opcode (or transaction kind) that opened a frame.
type CallKind uint8

const (
	CallKindCall CallKind = iota
	CallKindCallCode
	CallKindDelegateCall
	CallKindStaticCall
	CallKindCreate
	CallKindCreate2
)

func (k CallKind) String() string {
	switch k {
	case CallKindCall:
		return "CALL"
	case CallKindCallCode:
		return "CALLCODE"
	case CallKindDelegateCall:
		return "DELEGATECALL"
	case CallKindStaticCall:
		return "STATICCALL"
	case CallKindCreate:
		return "CREATE"
	case CallKindCreate2:
		return "CREATE2"
	}
	return "UNKNOWN"
}

// IsCreate reports whether the frame deploys code.
func (k CallKind) IsCreate() bool { return k == CallKindCreate || k == CallKindCreate2 }

// CallFrame describes a frame as it is entered.
type CallFrame struct {
	Kind  CallKind
	Depth int
	// Caller is msg.sender inside the frame.
	Caller types.Address
	// Address is the account whose storage and balance the frame uses.
	Address types.Address
	// CodeAddress is where the executed code came from. For a delegated
	// account it is the delegate.
	CodeAddress types.Address
	Input       []byte
	Value       *uint256.Int
	Gas         uint64
	Static      bool
	// Delegated is set when the callee's code was an EIP-7702 designator.
	Delegated bool
}

// FrameResult is the outcome of a frame.
type FrameResult struct {
	Status  Status
	Halt    HaltReason
	Success SuccessReason
	Output  []byte
	// GasLeft is returned to the caller: zero after a halt inside the
	// frame, the full allowance when the frame failed before starting.
	GasLeft        uint64
	CreatedAddress *types.Address
}

// Succeeded reports whether the frame completed without revert or halt.
func (r *FrameResult) Succeeded() bool { return r.Status == StatusSuccess }

// StepContext is the interpreter state around one instruction. It is
// reused between steps: callbacks must copy anything they keep.
type StepContext struct {
	PC  uint64
	Op  OpCode
	Gas uint64
	// Cost is only set in StepEnd.
	Cost       uint64
	Depth      int
	Stack      *Stack
	Memory     *Memory
	Contract   *Contract
	ReturnData []byte
	// Err is the halt or revert raised by the instruction, if any.
	Err error
}

// Inspector observes execution. Implementations must not retain the
// pointers they receive and cannot influence the outcome.
type Inspector interface {
	CallEnter(frame *CallFrame)
	CallExit(frame *CallFrame, result *FrameResult)
	Step(step *StepContext)
	StepEnd(step *StepContext)
	Log(log *types.Log)
	StorageAccess(addr types.Address, key, value types.Hash, write bool)
}

// NoopInspector implements Inspector with empty callbacks. Embed it to
// implement only the hooks you need.
type NoopInspector struct{}

func (NoopInspector) CallEnter(*CallFrame)                                      {}
func (NoopInspector) CallExit(*CallFrame, *FrameResult)                         {}
func (NoopInspector) Step(*StepContext)                                         {}
func (NoopInspector) StepEnd(*StepContext)                                      {}
func (NoopInspector) Log(*types.Log)                                            {}
func (NoopInspector) StorageAccess(types.Address, types.Hash, types.Hash, bool) {}

// MultiInspector fans callbacks out to several inspectors in order.
type MultiInspector []Inspector

func (m MultiInspector) CallEnter(f *CallFrame) {
	for _, i := range m {
		i.CallEnter(f)
	}
}

func (m MultiInspector) CallExit(f *CallFrame, r *FrameResult) {
	for _, i := range m {
		i.CallExit(f, r)
	}
}

func (m MultiInspector) Step(s *StepContext) {
	for _, i := range m {
		i.Step(s)
	}
}

func (m MultiInspector) StepEnd(s *StepContext) {
	for _, i := range m {
		i.StepEnd(s)
	}
}

func (m MultiInspector) Log(l *types.Log) {
	for _, i := range m {
		i.Log(l)
	}
}

func (m MultiInspector) StorageAccess(addr types.Address, key, value types.Hash, write bool) {
	for _, i := range m {
		i.StorageAccess(addr, key, value, write)
	}
}
