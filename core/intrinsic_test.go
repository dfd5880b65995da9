package core

import (
	"testing"

	"github.com/eth2030/evmcore/core/types"
	"github.com/eth2030/evmcore/core/vm"
)

func TestCalcIntrinsicGas(t *testing.T) {
	to := recipient
	tests := []struct {
		name string
		tx   types.Transaction
		spec vm.SpecID
		want IntrinsicGas
	}{
		{"transfer", types.Transaction{To: &to}, vm.Cancun, IntrinsicGas{Initial: 21000}},
		{"transfer prague floor", types.Transaction{To: &to}, vm.Prague, IntrinsicGas{Initial: 21000, Floor: 21000}},
		{"calldata", types.Transaction{To: &to, Data: []byte{0, 1, 0, 2}}, vm.Cancun, IntrinsicGas{Initial: 21000 + 2*4 + 2*16}},
		{"calldata frontier", types.Transaction{To: &to, Data: []byte{1}}, vm.Frontier, IntrinsicGas{Initial: 21000 + 68}},
		{"create", types.Transaction{Data: make([]byte, 33)}, vm.Shanghai, IntrinsicGas{Initial: 53000 + 33*4 + 2*2}},
		{"create frontier", types.Transaction{}, vm.Frontier, IntrinsicGas{Initial: 21000}},
		{"access list", types.Transaction{To: &to, AccessList: []types.AccessTuple{
			{Address: to, StorageKeys: []types.Hash{{1}, {2}}},
		}}, vm.Berlin, IntrinsicGas{Initial: 21000 + 2400 + 2*1900}},
		{"authorizations", types.Transaction{To: &to, AuthorizationList: make([]types.Authorization, 2)}, vm.Prague,
			IntrinsicGas{Initial: 21000 + 2*25000, Floor: 21000}},
		{"floor tokens", types.Transaction{To: &to, Data: []byte{0, 1}}, vm.Prague,
			IntrinsicGas{Initial: 21000 + 4 + 16, Floor: 21000 + (1+4)*10}},
	}
	for _, tt := range tests {
		if got := CalcIntrinsicGas(&tt.tx, tt.spec); got != tt.want {
			t.Errorf("%s: got %+v, want %+v", tt.name, got, tt.want)
		}
	}
}
