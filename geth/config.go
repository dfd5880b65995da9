package geth

import (
	"math/big"

	"github.com/ethereum/go-ethereum/params"

	"github.com/eth2030/evmcore/core"
	"github.com/eth2030/evmcore/core/vm"
)

// SpecFromRules returns the newest ruleset active in rules.
func SpecFromRules(rules params.Rules) vm.SpecID {
	switch {
	case rules.IsOsaka:
		return vm.Osaka
	case rules.IsPrague:
		return vm.Prague
	case rules.IsCancun:
		return vm.Cancun
	case rules.IsShanghai:
		return vm.Shanghai
	case rules.IsMerge:
		return vm.Merge
	case rules.IsLondon:
		return vm.London
	case rules.IsBerlin:
		return vm.Berlin
	case rules.IsIstanbul:
		return vm.Istanbul
	case rules.IsPetersburg:
		return vm.Petersburg
	case rules.IsConstantinople:
		return vm.Constantinople
	case rules.IsByzantium:
		return vm.Byzantium
	case rules.IsEIP158:
		return vm.SpuriousDragon
	case rules.IsEIP150:
		return vm.TangerineWhistle
	case rules.IsHomestead:
		return vm.Homestead
	}
	return vm.Frontier
}

// SpecAt returns the ruleset of cfg at a block. Post-merge blocks are
// identified by a configured terminal total difficulty.
func SpecAt(cfg *params.ChainConfig, number, time uint64) vm.SpecID {
	isMerge := cfg.TerminalTotalDifficulty != nil
	return SpecFromRules(cfg.Rules(new(big.Int).SetUint64(number), isMerge, time))
}

// CoreConfig returns an execution config for cfg at a block.
func CoreConfig(cfg *params.ChainConfig, number, time uint64) *core.Config {
	out := core.DefaultConfig()
	if cfg.ChainID != nil {
		out.ChainID = cfg.ChainID.Uint64()
	}
	out.Spec = SpecAt(cfg, number, time)
	return out
}

// ChainConfigFor returns a chain config with every fork up to spec active
// from genesis.
func ChainConfigFor(chainID uint64, spec vm.SpecID) *params.ChainConfig {
	zero := big.NewInt(0)
	ts := uint64(0)
	c := &params.ChainConfig{ChainID: new(big.Int).SetUint64(chainID)}

	if spec.Enabled(vm.Homestead) {
		c.HomesteadBlock = zero
	}
	if spec.Enabled(vm.TangerineWhistle) {
		c.EIP150Block = zero
	}
	if spec.Enabled(vm.SpuriousDragon) {
		c.EIP155Block = zero
		c.EIP158Block = zero
	}
	if spec.Enabled(vm.Byzantium) {
		c.ByzantiumBlock = zero
	}
	if spec.Enabled(vm.Constantinople) {
		c.ConstantinopleBlock = zero
	}
	if spec.Enabled(vm.Petersburg) {
		c.PetersburgBlock = zero
	}
	if spec.Enabled(vm.Istanbul) {
		c.IstanbulBlock = zero
	}
	if spec.Enabled(vm.Berlin) {
		c.BerlinBlock = zero
	}
	if spec.Enabled(vm.London) {
		c.LondonBlock = zero
	}
	if spec.Enabled(vm.Merge) {
		c.TerminalTotalDifficulty = zero
	}
	if spec.Enabled(vm.Shanghai) {
		c.ShanghaiTime = &ts
	}
	if spec.Enabled(vm.Cancun) {
		c.CancunTime = &ts
	}
	if spec.Enabled(vm.Prague) {
		c.PragueTime = &ts
	}
	if spec.Enabled(vm.Osaka) {
		c.OsakaTime = &ts
	}
	return c
}
