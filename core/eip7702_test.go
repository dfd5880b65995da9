package core

import (
	"testing"

	"github.com/eth2030/evmcore/core/types"
	"github.com/eth2030/evmcore/core/vm"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestSetCodeTransaction(t *testing.T) {
	key, err := gethcrypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	require.NoError(t, err)
	authority := types.PubkeyToAddress(key.PublicKey)

	db := fundedDB()
	// Delegate code: SSTORE(0, 1).
	db.SetAccount(contract, nil, 1, []byte{byte(vm.PUSH1), 1, byte(vm.PUSH1), 0, byte(vm.SSTORE), byte(vm.STOP)})
	evm := newTestEvm(t, db)

	good, err := types.SignAuthorization(types.Authorization{ChainID: uint256.NewInt(1), Address: contract}, key)
	require.NoError(t, err)
	wrongChain, err := types.SignAuthorization(types.Authorization{ChainID: uint256.NewInt(9), Address: recipient}, key)
	require.NoError(t, err)

	tx := callTx(authority, 200000)
	tx.Type = types.SetCodeTxType
	tx.AuthorizationList = []types.Authorization{wrongChain, good}

	res, err := evm.TransactOne(tx)
	require.NoError(t, err)
	require.True(t, res.Succeeded())

	j := evm.Context().Journal
	d, err := types.DecodeDelegation(j.GetCode(authority))
	require.NoError(t, err)
	require.Equal(t, contract, d.Address())
	require.Equal(t, uint64(1), j.GetNonce(authority))
	// The delegate's code ran against the authority's storage.
	require.Equal(t, types.BytesToHash([]byte{1}), j.GetState(authority, types.Hash{}))
	require.Equal(t, types.Hash{}, j.GetState(contract, types.Hash{}))

	// A replayed authorization has a stale nonce and is skipped; clearing
	// with the zero address removes the delegation.
	revoke, err := types.SignAuthorization(types.Authorization{Address: types.Address{}, Nonce: 1}, key)
	require.NoError(t, err)
	tx = callTx(recipient, 100000)
	tx.Nonce = 1
	tx.Type = types.SetCodeTxType
	tx.AuthorizationList = []types.Authorization{good, revoke}
	res, err = evm.TransactOne(tx)
	require.NoError(t, err)
	require.True(t, res.Succeeded())
	require.Empty(t, j.GetCode(authority))
	require.Equal(t, uint64(2), j.GetNonce(authority))
	// The authority existed, so the applied entry refunds 25000 - 12500.
	require.Equal(t, uint64(21000+2*25000), res.GasRefunded+res.GasUsed)
	require.Equal(t, uint64(12500), res.GasRefunded)
}

func TestDelegatedSenderAllowed(t *testing.T) {
	db := fundedDB()
	db.SetAccount(sender, oneEther, 0, types.NewDelegation(contract).Bytes())
	evm := newTestEvm(t, db)
	res, err := evm.TransactOne(transferTx(0, 1))
	require.NoError(t, err)
	require.True(t, res.Succeeded())

	evm = newTestEvm(t, db)
	evm.Context().Config.Spec = vm.Cancun
	_, err = evm.TransactOne(transferTx(0, 1))
	require.ErrorIs(t, err, ErrSenderNoEOA)
}
