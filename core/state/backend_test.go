package state

import (
	"path/filepath"
	"testing"

	"github.com/eth2030/evmcore/core/rawdb"
	"github.com/eth2030/evmcore/core/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestKVDatabaseRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := rawdb.NewBoltDB(path)
	require.NoError(t, err)
	kv := NewKVDatabase(store)

	info := NewAccountInfo()
	info.Balance.SetUint64(500)
	info.Nonce = 3
	require.NoError(t, kv.WriteAccount(addrA, info))

	j := NewJournal(kv)
	j.BeginTx()
	j.SetCode(addrB, []byte{0x60, 0x2a})
	j.SetState(addrB, slot1, val1)
	j.AddBalance(addrA, uint256.NewInt(1))
	j.CommitTx()
	require.NoError(t, kv.Commit(j.Finalize()))
	require.NoError(t, store.Close())

	store, err = rawdb.NewBoltDB(path)
	require.NoError(t, err)
	defer store.Close()
	kv = NewKVDatabase(store)

	got, err := kv.Basic(addrA)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, uint64(501), got.Balance.Uint64())
	require.Equal(t, uint64(3), got.Nonce)
	require.Equal(t, types.EmptyCodeHash, got.CodeHash)

	j = NewJournal(kv)
	require.Equal(t, []byte{0x60, 0x2a}, j.GetCode(addrB))
	require.Equal(t, val1, j.GetState(addrB, slot1))
	require.NoError(t, j.Error())

	missing, err := kv.Basic(types.HexToAddress("0x99"))
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestKVDatabaseCreatedWipesStorage(t *testing.T) {
	kv := NewKVDatabase(rawdb.NewMemoryDB())
	require.NoError(t, kv.WriteAccount(addrA, NewAccountInfo()))

	j := NewJournal(kv)
	j.BeginTx()
	j.SetState(addrA, slot1, val1)
	j.SetState(addrA, types.HexToHash("0x02"), val2)
	j.CommitTx()
	require.NoError(t, kv.Commit(j.Finalize()))

	j.BeginTx()
	j.CreateAccount(addrA)
	j.SetNonce(addrA, 1)
	j.SetState(addrA, slot1, val2)
	j.CommitTx()
	require.NoError(t, kv.Commit(j.Finalize()))

	v, err := kv.Storage(addrA, slot1)
	require.NoError(t, err)
	require.Equal(t, val2, v)
	v, err = kv.Storage(addrA, types.HexToHash("0x02"))
	require.NoError(t, err)
	require.Equal(t, types.Hash{}, v)
}

type countingDB struct {
	*MemoryDB
	basic int
}

func (c *countingDB) Basic(addr types.Address) (*AccountInfo, error) {
	c.basic++
	return c.MemoryDB.Basic(addr)
}

func TestCachingDB(t *testing.T) {
	inner := &countingDB{MemoryDB: NewMemoryDB()}
	inner.SetAccount(addrA, uint256.NewInt(10), 0, nil)
	c := NewCachingDB(inner, 16)

	for i := 0; i < 3; i++ {
		info, err := c.Basic(addrA)
		require.NoError(t, err)
		require.Equal(t, uint64(10), info.Balance.Uint64())
		info.Balance.SetUint64(0) // copies must not alias the cache
	}
	require.Equal(t, 1, inner.basic)

	missing, err := c.Basic(addrB)
	require.NoError(t, err)
	require.Nil(t, missing)
	_, _ = c.Basic(addrB)
	require.Equal(t, 2, inner.basic)

	j := NewJournal(c)
	j.BeginTx()
	j.AddBalance(addrB, uint256.NewInt(4))
	j.CommitTx()
	require.NoError(t, c.Commit(j.Finalize()))

	accounts, _, _ := c.Len()
	require.Equal(t, 0, accounts)
	info, err := c.Basic(addrB)
	require.NoError(t, err)
	require.Equal(t, uint64(4), info.Balance.Uint64())
}

type readOnlyDB struct{ Database }

func TestCachingDBCommitUnsupported(t *testing.T) {
	c := NewCachingDB(readOnlyDB{NewMemoryDB()}, 0)
	require.ErrorIs(t, c.Commit(State{}), ErrCommitUnsupported)
}
