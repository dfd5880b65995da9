package state

import (
	"errors"

	"github.com/eth2030/evmcore/core/types"
)

var (
	// ErrCodeNotFound is returned by CodeByHash for unknown hashes.
	ErrCodeNotFound = errors.New("state: code not found")
)

// Database is the read side of a state backend. Basic returns nil, nil
// for an account the backend does not know.
type Database interface {
	Basic(addr types.Address) (*AccountInfo, error)
	CodeByHash(hash types.Hash) ([]byte, error)
	Storage(addr types.Address, key types.Hash) (types.Hash, error)
	BlockHash(number uint64) (types.Hash, error)
}

// DatabaseCommit is implemented by backends that can persist a finalized
// State.
type DatabaseCommit interface {
	Commit(changes State) error
}
