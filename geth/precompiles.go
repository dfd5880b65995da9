package geth

import (
	"maps"
	"slices"

	gethcommon "github.com/ethereum/go-ethereum/common"
	gethvm "github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"

	"github.com/eth2030/evmcore/core/vm"
)

// PrecompileAdapter exposes a precompile as a go-ethereum contract,
// priced under a fixed spec.
type PrecompileAdapter struct {
	inner vm.Precompile
	spec  vm.SpecID
}

var _ gethvm.PrecompiledContract = (*PrecompileAdapter)(nil)

// NewPrecompileAdapter wraps p priced under spec.
func NewPrecompileAdapter(p vm.Precompile, spec vm.SpecID) *PrecompileAdapter {
	return &PrecompileAdapter{inner: p, spec: spec}
}

// RequiredGas returns the fixed cost. The input is not read.
func (a *PrecompileAdapter) RequiredGas([]byte) uint64 {
	return a.inner.Gas(a.spec)
}

// Run executes the precompile body.
func (a *PrecompileAdapter) Run(input []byte) ([]byte, error) {
	return a.inner.Run(input)
}

// Name returns the precompile name.
func (a *PrecompileAdapter) Name() string {
	return a.inner.Name
}

// Precompiles returns go-ethereum's precompiles for rules with the
// entries of set replacing those at the same address.
func Precompiles(rules params.Rules, set *vm.PrecompileSet) gethvm.PrecompiledContracts {
	spec := SpecFromRules(rules)
	out := maps.Clone(gethvm.ActivePrecompiledContracts(rules))
	if out == nil {
		out = make(gethvm.PrecompiledContracts)
	}
	for _, addr := range set.Addresses() {
		p, _ := set.Get(addr)
		out[ToGethAddress(addr)] = NewPrecompileAdapter(p, spec)
	}
	return out
}

// InjectIntoEVM installs the precompiles of the SpecID active in rules
// into a go-ethereum EVM.
func InjectIntoEVM(evm *gethvm.EVM, rules params.Rules) {
	evm.SetPrecompiles(Precompiles(rules, vm.PrecompilesFor(SpecFromRules(rules))))
}

// PrecompileAddresses returns the addresses Precompiles installs, the set
// go-ethereum warms for EIP-2929.
func PrecompileAddresses(rules params.Rules, set *vm.PrecompileSet) []gethcommon.Address {
	addrs := slices.Clone(gethvm.ActivePrecompiles(rules))
	seen := make(map[gethcommon.Address]bool, len(addrs))
	for _, a := range addrs {
		seen[a] = true
	}
	for _, addr := range set.Addresses() {
		if a := ToGethAddress(addr); !seen[a] {
			addrs = append(addrs, a)
		}
	}
	return addrs
}
