package core

import (
	"errors"

	"github.com/eth2030/evmcore/core/state"
)

// ErrorKind classifies errors returned on the error channel.
type ErrorKind uint8

const (
	// KindTransaction marks a transaction that is invalid against its
	// environment or the current state.
	KindTransaction ErrorKind = iota + 1
	// KindHeader marks a block environment missing a required field.
	KindHeader
	// KindDatabase marks a failure of the state backend.
	KindDatabase
	// KindCustom covers misuse of the API and chain-specific failures.
	KindCustom
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransaction:
		return "transaction"
	case KindHeader:
		return "header"
	case KindDatabase:
		return "database"
	case KindCustom:
		return "custom"
	}
	return "unknown"
}

// Transaction validation errors.
var (
	ErrNonceTooLow            = errors.New("nonce too low")
	ErrNonceTooHigh           = errors.New("nonce too high")
	ErrNonceMax               = errors.New("nonce has max value")
	ErrInsufficientFunds      = errors.New("insufficient funds for gas * price + value")
	ErrIntrinsicGasTooLow     = errors.New("intrinsic gas too low")
	ErrFloorDataGas           = errors.New("gas limit below floor data gas")
	ErrGasLimitExceeded       = errors.New("gas limit exceeds block gas limit")
	ErrFeeCapTooLow           = errors.New("max fee per gas less than block base fee")
	ErrTipAboveFeeCap         = errors.New("max priority fee per gas higher than max fee per gas")
	ErrSenderNoEOA            = errors.New("sender not an eoa")
	ErrInvalidChainID         = errors.New("invalid chain id")
	ErrTxTypeNotSupported     = errors.New("transaction type not supported")
	ErrInitCodeSizeLimit      = errors.New("max initcode size exceeded")
	ErrBlobTxCreate           = errors.New("blob transaction of type create")
	ErrMissingBlobHashes      = errors.New("blob transaction missing blob hashes")
	ErrBlobHashVersion        = errors.New("blob hash version not supported")
	ErrBlobFeeCapTooLow       = errors.New("max fee per blob gas less than block blob gas fee")
	ErrSetCodeTxCreate        = errors.New("set code transaction of type create")
	ErrEmptyAuthorizationList = errors.New("empty authorization list")
)

// Block environment errors.
var (
	ErrMissingBaseFee     = errors.New("base fee missing after london")
	ErrMissingBlobBaseFee = errors.New("blob base fee missing after cancun")
)

var (
	// ErrNoTransaction is returned by Replay when no transaction is installed.
	ErrNoTransaction = errors.New("no transaction installed")

	// ErrCommitUnsupported is returned by Commit when the backend cannot
	// persist a diff.
	ErrCommitUnsupported = state.ErrCommitUnsupported
)

// EVMError is the error type of the execution API. The wrapped sentinel
// matches with errors.Is, the kind with errors.As or KindOf.
type EVMError struct {
	Kind ErrorKind
	Err  error
}

func (e *EVMError) Error() string { return e.Kind.String() + " error: " + e.Err.Error() }

func (e *EVMError) Unwrap() error { return e.Err }

// Is matches another EVMError of the same kind with a nil Err, so that
// errors.Is(err, &EVMError{Kind: KindDatabase}) works.
func (e *EVMError) Is(target error) bool {
	t, ok := target.(*EVMError)
	return ok && t.Err == nil && t.Kind == e.Kind
}

func newError(kind ErrorKind, err error) error {
	var evmErr *EVMError
	if errors.As(err, &evmErr) {
		return err
	}
	return &EVMError{Kind: kind, Err: err}
}

// TransactionError tags err as an invalid transaction.
func TransactionError(err error) error { return newError(KindTransaction, err) }

// HeaderError tags err as an invalid block environment.
func HeaderError(err error) error { return newError(KindHeader, err) }

// DatabaseError tags err as a backend failure.
func DatabaseError(err error) error { return newError(KindDatabase, err) }

// CustomError tags err as a chain-specific or API failure.
func CustomError(err error) error { return newError(KindCustom, err) }

// KindOf returns the kind of an EVMError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var evmErr *EVMError
	if errors.As(err, &evmErr) {
		return evmErr.Kind, true
	}
	return 0, false
}
