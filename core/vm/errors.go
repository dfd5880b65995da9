package vm

import (
	"errors"
	"fmt"
)

// Status is the top-level outcome of a frame or transaction.
type Status uint8

const (
	StatusSuccess Status = iota
	StatusRevert
	StatusHalt
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusRevert:
		return "revert"
	case StatusHalt:
		return "halt"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// SuccessReason tells how a successful frame stopped.
type SuccessReason uint8

const (
	SuccessStop SuccessReason = iota
	SuccessReturn
	SuccessSelfDestruct
)

func (r SuccessReason) String() string {
	switch r {
	case SuccessStop:
		return "stop"
	case SuccessReturn:
		return "return"
	case SuccessSelfDestruct:
		return "selfdestruct"
	}
	return fmt.Sprintf("success(%d)", uint8(r))
}

// HaltReason is an exceptional halt. It implements error so instructions
// can return it directly; the frame driver turns it into a result status.
type HaltReason uint8

const (
	HaltOutOfGas HaltReason = iota + 1
	HaltInvalidOpcode
	HaltInvalidFEOpcode
	HaltInvalidJump
	HaltStackUnderflow
	HaltStackOverflow
	HaltWriteProtection
	HaltReturnDataOutOfBounds
	HaltCallTooDeep
	HaltOutOfFunds
	HaltNonceOverflow
	HaltCreateCollision
	HaltCodeSizeLimit
	HaltCreateStartsWithEF
	HaltInitCodeSizeLimit
	HaltPrecompileOutOfGas
	HaltPrecompileError
	HaltOutOfOffset
	// HaltFatalExternalError is reported to inspectors for a frame aborted
	// by a state backend failure. It never reaches an ExecutionResult.
	HaltFatalExternalError
	// HaltFailedDeposit is reported by chain variants for a deposit
	// transaction that could not be executed.
	HaltFailedDeposit
)

var haltNames = map[HaltReason]string{
	HaltOutOfGas:              "out of gas",
	HaltInvalidOpcode:         "invalid opcode",
	HaltInvalidFEOpcode:       "designated invalid opcode",
	HaltInvalidJump:           "invalid jump destination",
	HaltStackUnderflow:        "stack underflow",
	HaltStackOverflow:         "stack overflow",
	HaltWriteProtection:       "write protection",
	HaltReturnDataOutOfBounds: "return data out of bounds",
	HaltCallTooDeep:           "max call depth exceeded",
	HaltOutOfFunds:            "insufficient balance for transfer",
	HaltNonceOverflow:         "nonce overflow",
	HaltCreateCollision:       "contract address collision",
	HaltCodeSizeLimit:         "max code size exceeded",
	HaltCreateStartsWithEF:    "invalid code: must not begin with 0xef",
	HaltInitCodeSizeLimit:     "max initcode size exceeded",
	HaltPrecompileOutOfGas:    "precompile out of gas",
	HaltPrecompileError:       "precompile failed",
	HaltOutOfOffset:           "offset overflow",
	HaltFatalExternalError:    "fatal external error",
	HaltFailedDeposit:         "failed deposit",
}

func (h HaltReason) Error() string {
	if s, ok := haltNames[h]; ok {
		return s
	}
	return fmt.Sprintf("halt(%d)", uint8(h))
}

func (h HaltReason) String() string { return h.Error() }

// ErrExecutionReverted is returned by REVERT. Remaining gas is refunded to
// the caller frame.
var ErrExecutionReverted = errors.New("execution reverted")

// asHalt extracts a halt reason from an instruction error.
func asHalt(err error) (HaltReason, bool) {
	var h HaltReason
	if errors.As(err, &h) {
		return h, true
	}
	return 0, false
}
