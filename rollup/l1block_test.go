package rollup

import (
	"testing"

	"github.com/eth2030/evmcore/core/state"
	"github.com/eth2030/evmcore/core/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var facade = []byte{0xfa, 0xca, 0xde}

func TestDataGas(t *testing.T) {
	info := new(L1BlockInfo)
	input := []byte{0x00, 0x01, 0x00, 0xff}

	require.Equal(t, uint64(2*4+2*16), info.DataGas(input, Regolith).Uint64())
	require.Equal(t, uint64(2*4+2*16+68*16), info.DataGas(input, Bedrock).Uint64())
}

func TestL1CostBedrock(t *testing.T) {
	info := &L1BlockInfo{
		L1BaseFee:       uint256.NewInt(1000),
		L1FeeOverhead:   uint256.NewInt(1000),
		L1BaseFeeScalar: uint256.NewInt(1000),
	}
	// (48 + 1000) * 1000 * 1000 / 1e6
	require.Equal(t, uint64(1048), info.L1Cost(facade, Regolith).Uint64())
	// The signature allowance adds 1088 data gas.
	require.Equal(t, uint64(2136), info.L1Cost(facade, Bedrock).Uint64())

	require.True(t, info.L1Cost(nil, Regolith).IsZero())
	require.True(t, info.L1Cost([]byte{byte(DepositTxType), 0x01}, Regolith).IsZero())
}

func TestL1CostEcotone(t *testing.T) {
	info := &L1BlockInfo{
		L1BaseFee:           uint256.NewInt(1000),
		L1BaseFeeScalar:     uint256.NewInt(1000),
		L1BlobBaseFee:       uint256.NewInt(1000),
		L1BlobBaseFeeScalar: uint256.NewInt(1000),
	}
	// 48 * (16*1000*1000 + 1000*1000) / 16e6
	require.Equal(t, uint64(51), info.L1Cost(facade, Ecotone).Uint64())
	require.Equal(t, uint64(51), info.L1Cost(facade, Fjord).Uint64())

	info.EmptyEcotoneScalars = true
	info.L1FeeOverhead = uint256.NewInt(1000)
	require.Equal(t, uint64(1048), info.L1Cost(facade, Ecotone).Uint64())
}

func word(v uint64) types.Hash {
	return types.Hash(uint256.NewInt(v).Bytes32())
}

func TestFetchL1BlockInfo(t *testing.T) {
	db := state.NewMemoryDB()
	db.SetStorage(L1BlockAddress, l1BaseFeeSlot, word(1000))
	db.SetStorage(L1BlockAddress, l1OverheadSlot, word(188))
	db.SetStorage(L1BlockAddress, l1ScalarSlot, word(684000))

	info := FetchL1BlockInfo(state.NewJournal(db), Bedrock, 7)
	require.Equal(t, uint64(7), info.L2Block)
	require.Equal(t, uint64(1000), info.L1BaseFee.Uint64())
	require.Equal(t, uint64(188), info.L1FeeOverhead.Uint64())
	require.Equal(t, uint64(684000), info.L1BaseFeeScalar.Uint64())
	require.Nil(t, info.L1BlobBaseFee)

	// Ecotone with the predeploy not yet upgraded.
	info = FetchL1BlockInfo(state.NewJournal(db), Ecotone, 7)
	require.True(t, info.EmptyEcotoneScalars)
	require.Equal(t, uint64(684000), info.L1BaseFeeScalar.Uint64())

	var scalars types.Hash
	scalars[19] = 0x05 // base fee scalar 5
	scalars[23] = 0x09 // blob base fee scalar 9
	db.SetStorage(L1BlockAddress, ecotoneScalarSlot, scalars)
	db.SetStorage(L1BlockAddress, l1BlobBaseFeeSlot, word(3))

	info = FetchL1BlockInfo(state.NewJournal(db), Ecotone, 8)
	require.False(t, info.EmptyEcotoneScalars)
	require.Nil(t, info.L1FeeOverhead)
	require.Equal(t, uint64(5), info.L1BaseFeeScalar.Uint64())
	require.Equal(t, uint64(9), info.L1BlobBaseFeeScalar.Uint64())
	require.Equal(t, uint64(3), info.L1BlobBaseFee.Uint64())
}
