package core

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/eth2030/evmcore/core/rawdb"
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

	oneEther = new(uint256.Int).Mul(uint256.NewInt(1e9), uint256.NewInt(1e9))
)

func testBlock() *types.BlockEnv {
	b := types.NewBlockEnv()
	b.Number = 1000
	b.Timestamp = 1_700_000_000
	b.Coinbase = coinbase
	b.BaseFee = uint256.NewInt(7)
	b.BlobBaseFee = uint256.NewInt(1)
	return b
}

func newTestEvm(t *testing.T, db state.Database) *Evm {
	t.Helper()
	evm := NewEvm(db, DefaultConfig())
	evm.SetBlock(testBlock())
	return evm
}

func fundedDB() *state.MemoryDB {
	db := state.NewMemoryDB()
	db.SetAccount(sender, oneEther, 0, nil)
	return db
}

func transferTx(nonce uint64, value uint64) *types.Transaction {
	to := recipient
	return &types.Transaction{
		Type:     types.LegacyTxType,
		Caller:   sender,
		Nonce:    nonce,
		GasLimit: 21000,
		GasPrice: uint256.NewInt(10),
		To:       &to,
		Value:    uint256.NewInt(value),
	}
}

func callTx(to types.Address, gas uint64) *types.Transaction {
	return &types.Transaction{
		Type:      types.DynamicFeeTxType,
		Caller:    sender,
		GasLimit:  gas,
		GasPrice:  uint256.NewInt(20),
		GasTipCap: uint256.NewInt(2),
		To:        &to,
	}
}

func TestTransferChargesFees(t *testing.T) {
	db := fundedDB()
	evm := newTestEvm(t, db)

	res, err := evm.TransactOne(transferTx(0, 1000))
	require.NoError(t, err)
	require.True(t, res.Succeeded())
	require.Equal(t, uint64(21000), res.GasUsed)

	j := evm.Context().Journal
	want := new(uint256.Int).Sub(oneEther, uint256.NewInt(1000+21000*10))
	require.Equal(t, want, j.GetBalance(sender))
	require.Equal(t, uint64(1000), j.GetBalance(recipient).Uint64())
	require.Equal(t, uint64(21000*3), j.GetBalance(coinbase).Uint64())
	require.Equal(t, uint64(1), j.GetNonce(sender))
}

func TestTransactOneDoesNotCommit(t *testing.T) {
	db := fundedDB()
	evm := newTestEvm(t, db)

	_, err := evm.TransactOne(transferTx(0, 5))
	require.NoError(t, err)
	_, err = evm.TransactOne(transferTx(1, 5))
	require.NoError(t, err)

	info, err := db.Basic(sender)
	require.NoError(t, err)
	require.Equal(t, uint64(0), info.Nonce, "backend changed before commit")

	st := evm.Finalize()
	require.Contains(t, st, sender)
	require.Contains(t, st, recipient)
	require.Equal(t, uint64(2), st[sender].Info.Nonce)
	require.Empty(t, evm.Finalize())

	require.NoError(t, evm.Commit(st))
	info, err = db.Basic(recipient)
	require.NoError(t, err)
	require.Equal(t, uint64(10), info.Balance.Uint64())
}

func TestReplay(t *testing.T) {
	evm := newTestEvm(t, fundedDB())
	_, _, err := evm.Replay()
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, KindCustom, kind)
	require.ErrorIs(t, err, ErrNoTransaction)

	evm.SetTx(transferTx(0, 1))
	res, st, err := evm.Replay()
	require.NoError(t, err)
	require.True(t, res.Succeeded())
	require.Contains(t, st, recipient)
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.Transaction, *Evm)
		want   error
		kind   ErrorKind
	}{
		{"nonce too high", func(tx *types.Transaction, _ *Evm) { tx.Nonce = 3 }, ErrNonceTooHigh, KindTransaction},
		{"insufficient funds", func(tx *types.Transaction, _ *Evm) { tx.Value = new(uint256.Int).Set(oneEther) }, ErrInsufficientFunds, KindTransaction},
		{"intrinsic gas", func(tx *types.Transaction, _ *Evm) { tx.GasLimit = 20999 }, ErrIntrinsicGasTooLow, KindTransaction},
		{"block gas limit", func(tx *types.Transaction, e *Evm) { e.Context().Block.GasLimit = 20000 }, ErrGasLimitExceeded, KindTransaction},
		{"fee cap below base fee", func(tx *types.Transaction, _ *Evm) { tx.GasPrice = uint256.NewInt(6) }, ErrFeeCapTooLow, KindTransaction},
		{"tip above fee cap", func(tx *types.Transaction, _ *Evm) {
			tx.Type = types.DynamicFeeTxType
			tx.GasTipCap = uint256.NewInt(11)
		}, ErrTipAboveFeeCap, KindTransaction},
		{"chain id", func(tx *types.Transaction, _ *Evm) { id := uint64(5); tx.ChainID = &id }, ErrInvalidChainID, KindTransaction},
		{"type before fork", func(tx *types.Transaction, e *Evm) {
			tx.Type = types.SetCodeTxType
			e.Context().Config.Spec = vm.Cancun
		}, ErrTxTypeNotSupported, KindTransaction},
		{"empty authorization list", func(tx *types.Transaction, _ *Evm) { tx.Type = types.SetCodeTxType }, ErrEmptyAuthorizationList, KindTransaction},
		{"blob create", func(tx *types.Transaction, _ *Evm) {
			tx.Type = types.BlobTxType
			tx.To = nil
		}, ErrBlobTxCreate, KindTransaction},
		{"missing base fee", func(tx *types.Transaction, e *Evm) { e.Context().Block.BaseFee = nil }, ErrMissingBaseFee, KindHeader},
		{"sender with code", func(tx *types.Transaction, e *Evm) {
			e.Context().Journal.SetCode(sender, []byte{byte(vm.STOP)})
		}, ErrSenderNoEOA, KindTransaction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evm := newTestEvm(t, fundedDB())
			tx := transferTx(0, 1)
			tt.mutate(tx, evm)
			_, err := evm.TransactOne(tx)
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, &EVMError{Kind: tt.kind})

			var evmErr *EVMError
			require.True(t, errors.As(err, &evmErr))
			require.Equal(t, tt.kind, evmErr.Kind)
		})
	}
}

func TestNonceTooLowAfterCommit(t *testing.T) {
	evm := newTestEvm(t, fundedDB())
	_, err := evm.TransactCommit(transferTx(0, 1))
	require.NoError(t, err)
	_, err = evm.TransactOne(transferTx(0, 1))
	require.ErrorIs(t, err, ErrNonceTooLow)
}

func TestDisabledChecks(t *testing.T) {
	evm := newTestEvm(t, state.NewMemoryDB())
	cfg := evm.Context().Config
	cfg.DisableNonceCheck = true
	cfg.DisableBalanceCheck = true

	res, err := evm.TransactOne(transferTx(9, 0))
	require.NoError(t, err)
	require.True(t, res.Succeeded())
}

type failingDB struct {
	*state.MemoryDB
	fail types.Address
}

var errBackend = errors.New("backend offline")

func (db failingDB) Basic(addr types.Address) (*state.AccountInfo, error) {
	if addr == db.fail {
		return nil, errBackend
	}
	return db.MemoryDB.Basic(addr)
}

func TestDatabaseError(t *testing.T) {
	evm := newTestEvm(t, failingDB{MemoryDB: fundedDB(), fail: sender})
	_, err := evm.TransactOne(transferTx(0, 1))
	require.ErrorIs(t, err, errBackend)
	kind, _ := KindOf(err)
	require.Equal(t, KindDatabase, kind)

	// The failure inside a frame aborts on the error channel too.
	db := fundedDB()
	code := append([]byte{byte(vm.PUSH20)}, recipient[:]...)
	code = append(code, byte(vm.BALANCE), byte(vm.STOP))
	db.SetAccount(contract, nil, 1, code)
	evm = newTestEvm(t, failingDB{MemoryDB: db, fail: recipient})
	_, err = evm.TransactOne(callTx(contract, 100000))
	require.ErrorIs(t, err, errBackend)
	require.ErrorIs(t, err, &EVMError{Kind: KindDatabase})

	evm.DiscardTx()
	require.NoError(t, evm.Context().Journal.Error())
}

type readOnlyDB struct{ state.Database }

func TestCommitUnsupported(t *testing.T) {
	evm := newTestEvm(t, readOnlyDB{fundedDB()})
	_, err := evm.TransactCommit(transferTx(0, 1))
	require.ErrorIs(t, err, ErrCommitUnsupported)
	require.ErrorIs(t, err, state.ErrCommitUnsupported)
}

func TestRevertStillChargesGas(t *testing.T) {
	db := fundedDB()
	// SSTORE then REVERT.
	db.SetAccount(contract, nil, 1, []byte{
		byte(vm.PUSH1), 1, byte(vm.PUSH1), 0, byte(vm.SSTORE),
		byte(vm.PUSH1), 0, byte(vm.PUSH1), 0, byte(vm.REVERT),
	})
	evm := newTestEvm(t, db)
	res, err := evm.TransactOne(callTx(contract, 100000))
	require.NoError(t, err)
	require.Equal(t, vm.StatusRevert, res.Status)
	require.ErrorIs(t, res.Err(), vm.ErrExecutionReverted)
	require.Greater(t, res.GasUsed, uint64(21000))
	require.Less(t, res.GasUsed, uint64(100000))

	j := evm.Context().Journal
	require.Equal(t, uint64(1), j.GetNonce(sender))
	require.Equal(t, types.Hash{}, j.GetState(contract, types.Hash{}))
	// Paid at the effective price min(20, 7+2) = 9.
	paid := new(uint256.Int).Sub(oneEther, j.GetBalance(sender))
	require.Equal(t, res.GasUsed*9, paid.Uint64())
	require.Equal(t, res.GasUsed*2, j.GetBalance(coinbase).Uint64())
}

func TestHaltConsumesAllGas(t *testing.T) {
	db := fundedDB()
	db.SetAccount(contract, nil, 1, []byte{byte(vm.INVALID)})
	evm := newTestEvm(t, db)
	res, err := evm.TransactOne(callTx(contract, 50000))
	require.NoError(t, err)
	require.Equal(t, vm.StatusHalt, res.Status)
	require.Equal(t, vm.HaltInvalidFEOpcode, res.Halt)
	require.Equal(t, uint64(50000), res.GasUsed)
}

func TestStorageClearRefund(t *testing.T) {
	db := fundedDB()
	db.SetAccount(contract, nil, 1, []byte{byte(vm.PUSH1), 0, byte(vm.PUSH1), 0, byte(vm.SSTORE), byte(vm.STOP)})
	db.SetStorage(contract, types.Hash{}, types.BytesToHash([]byte{1}))
	evm := newTestEvm(t, db)

	res, err := evm.TransactOne(callTx(contract, 100000))
	require.NoError(t, err)
	require.True(t, res.Succeeded())
	// 21000 + 2 PUSH1 + cold SSTORE reset.
	require.Equal(t, uint64(26006), res.GasUsed+res.GasRefunded)
	require.Equal(t, vm.SstoreClearsRefund, res.GasRefunded)
}

func TestCreateTransaction(t *testing.T) {
	evm := newTestEvm(t, fundedDB())
	tx := callTx(types.Address{}, 200000)
	tx.To = nil
	// Deploys the single byte 0x00.
	tx.Data = []byte{byte(vm.PUSH1), 1, byte(vm.PUSH1), 0, byte(vm.RETURN)}

	res, err := evm.TransactOne(tx)
	require.NoError(t, err)
	require.True(t, res.Succeeded())
	require.NotNil(t, res.CreatedAddress)
	require.Equal(t, []byte{0}, res.Output)

	j := evm.Context().Journal
	require.Equal(t, uint64(1), j.GetNonce(sender))
	require.Equal(t, []byte{0}, j.GetCode(*res.CreatedAddress))
}

func TestLogsReturned(t *testing.T) {
	db := fundedDB()
	// LOG1 with topic 0xaa over empty data.
	db.SetAccount(contract, nil, 1, []byte{
		byte(vm.PUSH1), 0xaa, byte(vm.PUSH1), 0, byte(vm.PUSH1), 0, byte(vm.LOG1), byte(vm.STOP),
	})
	evm := newTestEvm(t, db)
	res, err := evm.TransactOne(callTx(contract, 100000))
	require.NoError(t, err)
	require.Len(t, res.Logs, 1)
	require.Equal(t, contract, res.Logs[0].Address)
	require.Equal(t, types.BytesToHash([]byte{0xaa}), res.Logs[0].Topics[0])
}

func TestFloorDataGas(t *testing.T) {
	evm := newTestEvm(t, fundedDB())
	tx := transferTx(0, 0)
	tx.Data = make([]byte, 100)
	for i := range tx.Data {
		tx.Data[i] = 0xff
	}
	tx.GasLimit = 30000
	res, err := evm.TransactOne(tx)
	require.NoError(t, err)
	// Intrinsic 22600, floor 21000 + 400 tokens * 10.
	require.Equal(t, uint64(25000), res.GasUsed)

	tx = transferTx(1, 0)
	tx.Data = make([]byte, 100)
	for i := range tx.Data {
		tx.Data[i] = 0xff
	}
	tx.GasLimit = 24000
	_, err = evm.TransactOne(tx)
	require.ErrorIs(t, err, ErrFloorDataGas)
}

func TestSystemCall(t *testing.T) {
	db := state.NewMemoryDB()
	db.SetAccount(contract, nil, 1, []byte{byte(vm.CALLER), byte(vm.PUSH1), 0, byte(vm.SSTORE), byte(vm.STOP)})
	evm := newTestEvm(t, db)

	res, err := evm.SystemCall(contract, nil)
	require.NoError(t, err)
	require.True(t, res.Succeeded())
	require.Positive(t, res.GasUsed)

	j := evm.Context().Journal
	require.Equal(t, uint64(0), j.GetNonce(SystemAddress))
	require.True(t, j.GetBalance(SystemAddress).IsZero())
	require.True(t, j.GetBalance(coinbase).IsZero())
	got := j.GetState(contract, types.Hash{})
	require.Equal(t, types.BytesToHash(SystemAddress[:]), got)

	res, err = evm.SystemCallOne(sender, contract, nil)
	require.NoError(t, err)
	require.True(t, res.Succeeded())
	require.Equal(t, types.BytesToHash(sender[:]), j.GetState(contract, types.Hash{}))
}

func TestInspectorOnlyOnInspectPath(t *testing.T) {
	db := fundedDB()
	db.SetAccount(contract, nil, 1, []byte{byte(vm.PUSH1), 1, byte(vm.PUSH1), 0, byte(vm.SSTORE), byte(vm.STOP)})

	plain := newTestEvm(t, db)
	want, err := plain.TransactOne(callTx(contract, 100000))
	require.NoError(t, err)

	logger := vm.NewStructLogger(vm.StructLoggerConfig{})
	evm := newTestEvm(t, db)
	evm.SetInspector(logger)
	_, err = evm.TransactOne(callTx(contract, 100000))
	require.NoError(t, err)
	require.Empty(t, logger.StructLogs())
	evm.DiscardTx()

	evm = newTestEvm(t, db)
	evm.SetInspector(logger)
	got, err := evm.InspectOneTx(callTx(contract, 100000))
	require.NoError(t, err)
	require.Len(t, logger.StructLogs(), 4)
	require.Equal(t, want.GasUsed, got.GasUsed)
	require.Equal(t, want.Status, got.Status)

	evm = newTestEvm(t, db)
	got, err = evm.InspectOneTx(callTx(contract, 100000))
	require.NoError(t, err)
	require.Equal(t, want.GasUsed, got.GasUsed)
}

func TestCommitToBoltSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := rawdb.NewBoltDB(path)
	require.NoError(t, err)
	kv := state.NewKVDatabase(store)
	require.NoError(t, kv.WriteAccount(sender, state.AccountInfo{Balance: new(uint256.Int).Set(oneEther)}))

	evm := newTestEvm(t, state.NewCachingDB(kv, 16))
	_, err = evm.TransactCommit(transferTx(0, 77))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = rawdb.NewBoltDB(path)
	require.NoError(t, err)
	defer store.Close()
	info, err := state.NewKVDatabase(store).Basic(recipient)
	require.NoError(t, err)
	require.NotNil(t, info)
	require.Equal(t, uint64(77), info.Balance.Uint64())
}
