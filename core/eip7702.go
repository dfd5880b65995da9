package core

import (
	"math"

	"github.com/eth2030/evmcore/core/state"
	"github.com/eth2030/evmcore/core/types"
	"github.com/eth2030/evmcore/log"
)

var authLog = log.Module("eip7702")

// applyAuthorizations installs the delegations of a SetCode transaction.
// Invalid entries are skipped, they never fail the transaction. An entry
// whose authority already exists refunds PerEmptyAccountCost -
// PerAuthBaseCost through the journal.
func applyAuthorizations(j *state.Journal, auths []types.Authorization, chainID uint64) {
	for i := range auths {
		auth := &auths[i]
		if auth.ChainID != nil && !auth.ChainID.IsZero() {
			if !auth.ChainID.IsUint64() || auth.ChainID.Uint64() != chainID {
				authLog.Trace("Skipping authorization", "index", i, "reason", "chain id")
				continue
			}
		}
		if auth.Nonce == math.MaxUint64 {
			continue
		}
		authority, err := auth.Authority()
		if err != nil {
			authLog.Trace("Skipping authorization", "index", i, "err", err)
			continue
		}
		j.AddAddressToAccessList(authority)

		if code := j.GetCode(authority); len(code) > 0 && !types.IsDelegation(code) {
			continue
		}
		if j.GetNonce(authority) != auth.Nonce {
			continue
		}
		if j.Exist(authority) {
			j.AddRefund(types.PerEmptyAccountCost - types.PerAuthBaseCost)
		}
		if auth.Address.IsZero() {
			j.SetCode(authority, nil)
		} else {
			j.SetCode(authority, types.NewDelegation(auth.Address).Bytes())
		}
		j.SetNonce(authority, auth.Nonce+1)
	}
}
