package core

import "github.com/eth2030/evmcore/core/vm"

// Config holds the chain rules a Context executes under.
type Config struct {
	ChainID uint64
	Spec    vm.SpecID

	// Validation switches, for tracing and simulation.
	DisableNonceCheck    bool
	DisableBalanceCheck  bool
	DisableBaseFee       bool
	DisableBlockGasLimit bool
	DisableEIP3607       bool
}

// DefaultConfig returns mainnet rules at Prague.
func DefaultConfig() *Config {
	return &Config{ChainID: 1, Spec: vm.Prague}
}

// Copy returns a shallow copy of c.
func (c *Config) Copy() *Config {
	cpy := *c
	return &cpy
}
