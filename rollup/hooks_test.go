package rollup

import (
	"testing"

	"github.com/eth2030/evmcore/core"
	"github.com/eth2030/evmcore/core/state"
	"github.com/eth2030/evmcore/core/types"
	"github.com/eth2030/evmcore/core/vm"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	sender    = types.HexToAddress("0x1000000000000000000000000000000000000001")
	recipient = types.HexToAddress("0x2000000000000000000000000000000000000002")
	contract  = types.HexToAddress("0x3000000000000000000000000000000000000003")
	coinbase  = types.HexToAddress("0xc000000000000000000000000000000000000000")

	startBalance = uint256.NewInt(10_000_000)
	sourceHash   = types.HexToHash("0x01")
)

// l2DB returns a backend with a funded sender and the L1Block predeploy
// holding Ecotone values that price facade at 51 wei.
func l2DB() *state.MemoryDB {
	db := state.NewMemoryDB()
	db.SetAccount(sender, startBalance, 0, nil)
	db.SetStorage(L1BlockAddress, l1BaseFeeSlot, word(1000))
	db.SetStorage(L1BlockAddress, l1BlobBaseFeeSlot, word(1000))
	var scalars types.Hash
	scalars[18], scalars[19] = 0x03, 0xe8
	scalars[22], scalars[23] = 0x03, 0xe8
	db.SetStorage(L1BlockAddress, ecotoneScalarSlot, scalars)
	return db
}

func newTestEvm(db state.Database, spec SpecID) *core.Evm {
	evm := NewEvm(db, spec, nil)
	b := types.NewBlockEnv()
	b.Number = 42
	b.Coinbase = coinbase
	b.BaseFee = uint256.NewInt(7)
	b.BlobBaseFee = uint256.NewInt(1)
	evm.SetBlock(b)
	return evm
}

func transferTx(value uint64) *Transaction {
	to := recipient
	return &Transaction{
		Transaction: types.Transaction{
			Type:     types.LegacyTxType,
			Caller:   sender,
			GasLimit: 21000,
			GasPrice: uint256.NewInt(10),
			To:       &to,
			Value:    uint256.NewInt(value),
		},
		EnvelopedTx: facade,
	}
}

func TestTransferPaysFeeVaults(t *testing.T) {
	evm := newTestEvm(l2DB(), Ecotone)

	res, err := evm.TransactOne(transferTx(1))
	require.NoError(t, err)
	require.True(t, res.Succeeded())
	require.Equal(t, uint64(21000), res.GasUsed)

	j := evm.Context().Journal
	require.Equal(t, startBalance.Uint64()-21000*10-1-51, j.GetBalance(sender).Uint64())
	require.Equal(t, uint64(51), j.GetBalance(L1FeeVaultAddress).Uint64())
	require.Equal(t, uint64(21000*7), j.GetBalance(BaseFeeVaultAddress).Uint64())
	require.Equal(t, uint64(21000*3), j.GetBalance(coinbase).Uint64())

	info := L1Info(evm.Context())
	require.NotNil(t, info)
	require.Equal(t, uint64(42), info.L2Block)
}

func TestL1InfoReloadedPerBlock(t *testing.T) {
	db := l2DB()
	evm := newTestEvm(db, Ecotone)
	_, err := evm.TransactOne(transferTx(1))
	require.NoError(t, err)
	first := L1Info(evm.Context())

	next := types.NewBlockEnv()
	next.Number = 43
	next.BaseFee = uint256.NewInt(7)
	evm.SetBlock(next)
	tx := transferTx(1)
	tx.Nonce = 1
	_, err = evm.TransactOne(tx)
	require.NoError(t, err)
	require.NotSame(t, first, L1Info(evm.Context()))
	require.Equal(t, uint64(43), L1Info(evm.Context()).L2Block)
}

func TestMissingEnvelopedTx(t *testing.T) {
	evm := newTestEvm(l2DB(), Ecotone)
	tx := transferTx(1)
	tx.EnvelopedTx = nil

	_, err := evm.TransactOne(tx)
	require.ErrorIs(t, err, ErrMissingEnvelopedTx)
	kind, _ := core.KindOf(err)
	require.Equal(t, core.KindTransaction, kind)
}

func TestBalanceCoversL1Cost(t *testing.T) {
	db := l2DB()
	// Enough for gas and value, 50 wei short of the L1 data fee.
	db.SetAccount(sender, uint256.NewInt(21000*10+1+1), 0, nil)
	evm := newTestEvm(db, Ecotone)

	_, err := evm.TransactOne(transferTx(1))
	require.ErrorIs(t, err, core.ErrInsufficientFunds)
}

func TestDepositMintsAndPaysNoFees(t *testing.T) {
	db := l2DB()
	evm := newTestEvm(db, Ecotone)
	to := recipient
	mint := uint256.NewInt(500)

	deposit := NewDepositTx(sourceHash, contract, &to, mint, uint256.NewInt(200), 100_000, nil)
	res, err := evm.TransactOne(deposit)
	require.NoError(t, err)
	require.True(t, res.Succeeded())
	require.Equal(t, uint64(21000), res.GasUsed)

	j := evm.Context().Journal
	require.Equal(t, uint64(300), j.GetBalance(contract).Uint64())
	require.Equal(t, uint64(200), j.GetBalance(recipient).Uint64())
	require.Equal(t, uint64(1), j.GetNonce(contract))
	require.True(t, j.GetBalance(L1FeeVaultAddress).IsZero())
	require.True(t, j.GetBalance(BaseFeeVaultAddress).IsZero())
	require.True(t, j.GetBalance(coinbase).IsZero())
}

func TestHaltedDepositKeepsMint(t *testing.T) {
	db := l2DB()
	// SSTORE(0, 1) then INVALID.
	db.SetAccount(contract, nil, 1, []byte{0x60, 0x01, 0x60, 0x00, 0x55, 0xfe})
	evm := newTestEvm(db, Ecotone)
	to := contract

	deposit := NewDepositTx(sourceHash, recipient, &to, uint256.NewInt(1000), nil, 80_000, nil)
	res, err := evm.TransactOne(deposit)
	require.NoError(t, err)
	require.Equal(t, vm.StatusHalt, res.Status)
	require.Equal(t, vm.HaltFailedDeposit, res.Halt)
	require.Equal(t, uint64(80_000), res.GasUsed)

	j := evm.Context().Journal
	require.Equal(t, uint64(1000), j.GetBalance(recipient).Uint64())
	require.Equal(t, uint64(1), j.GetNonce(recipient))
	require.Equal(t, types.Hash{}, j.GetState(contract, types.Hash{}))

	st := evm.Finalize()
	require.Contains(t, st, recipient)
}

func TestInvalidDepositFails(t *testing.T) {
	evm := newTestEvm(l2DB(), Ecotone)
	to := recipient

	// Below intrinsic gas.
	deposit := NewDepositTx(sourceHash, contract, &to, uint256.NewInt(7), nil, 1000, nil)
	res, err := evm.TransactOne(deposit)
	require.NoError(t, err)
	require.Equal(t, vm.HaltFailedDeposit, res.Halt)
	require.Equal(t, uint64(1000), res.GasUsed)
	require.Equal(t, uint64(7), evm.Context().Journal.GetBalance(contract).Uint64())
	require.Equal(t, uint64(1), evm.Context().Journal.GetNonce(contract))
}

func TestSystemDeposit(t *testing.T) {
	to := recipient

	// Before Regolith a system deposit uses no gas.
	evm := newTestEvm(l2DB(), Bedrock)
	deposit := NewDepositTx(sourceHash, contract, &to, nil, nil, 100_000, nil)
	deposit.Deposit.IsSystemTx = true
	res, err := evm.TransactOne(deposit)
	require.NoError(t, err)
	require.True(t, res.Succeeded())
	require.Zero(t, res.GasUsed)

	// A regular deposit reports its whole gas limit.
	deposit = NewDepositTx(sourceHash, contract, &to, nil, nil, 100_000, nil)
	deposit.Nonce = 1
	res, err = evm.TransactOne(deposit)
	require.NoError(t, err)
	require.Equal(t, uint64(100_000), res.GasUsed)

	// From Regolith system deposits are rejected as failed deposits.
	evm = newTestEvm(l2DB(), Regolith)
	deposit = NewDepositTx(sourceHash, contract, &to, nil, nil, 100_000, nil)
	deposit.Deposit.IsSystemTx = true
	res, err = evm.TransactOne(deposit)
	require.NoError(t, err)
	require.Equal(t, vm.HaltFailedDeposit, res.Halt)
	require.Equal(t, uint64(100_000), res.GasUsed)
}

func TestRollupSystemCall(t *testing.T) {
	db := l2DB()
	db.SetAccount(contract, nil, 1, []byte{0x60, 0x2a, 0x60, 0x00, 0x55, 0x00})
	evm := newTestEvm(db, Isthmus)

	res, err := evm.SystemCall(contract, nil)
	require.NoError(t, err)
	require.True(t, res.Succeeded())

	j := evm.Context().Journal
	require.Equal(t, types.BytesToHash([]byte{0x2a}), j.GetState(contract, types.Hash{}))
	require.True(t, j.GetBalance(L1FeeVaultAddress).IsZero())
	require.True(t, j.GetBalance(BaseFeeVaultAddress).IsZero())
	require.Zero(t, j.GetNonce(core.SystemAddress))
}
