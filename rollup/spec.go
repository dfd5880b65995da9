// Package rollup is the optimistic rollup variant of the execution core:
// L1 data fees, deposit transactions and fee vaults. It reuses the core
// transaction pipeline through core.Hooks.
package rollup

import (
	"fmt"
	"strings"

	"github.com/eth2030/evmcore/core/vm"
)

// SpecID identifies a rollup hardfork. Ordering is meaningful.
type SpecID uint8

const (
	Bedrock SpecID = iota
	Regolith
	Canyon
	Ecotone
	Fjord
	Granite
	Holocene
	Isthmus

	LatestSpec = Isthmus
)

var specNames = [...]string{
	Bedrock:  "bedrock",
	Regolith: "regolith",
	Canyon:   "canyon",
	Ecotone:  "ecotone",
	Fjord:    "fjord",
	Granite:  "granite",
	Holocene: "holocene",
	Isthmus:  "isthmus",
}

func (s SpecID) String() string {
	if int(s) < len(specNames) {
		return specNames[s]
	}
	return fmt.Sprintf("rollup-spec(%d)", uint8(s))
}

// Enabled reports whether fork is active under s.
func (s SpecID) Enabled(fork SpecID) bool { return s >= fork }

// EVMSpec returns the Ethereum ruleset a rollup fork executes under.
func (s SpecID) EVMSpec() vm.SpecID {
	switch {
	case s >= Isthmus:
		return vm.Prague
	case s >= Ecotone:
		return vm.Cancun
	case s >= Canyon:
		return vm.Shanghai
	}
	return vm.Merge
}

// ParseSpecID maps a fork name to its SpecID.
func ParseSpecID(name string) (SpecID, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range specNames {
		if n == name {
			return SpecID(i), nil
		}
	}
	return 0, fmt.Errorf("rollup: unknown spec %q", name)
}

func (s SpecID) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *SpecID) UnmarshalText(text []byte) error {
	id, err := ParseSpecID(string(text))
	if err != nil {
		return err
	}
	*s = id
	return nil
}

// PrecompilesFor returns the precompiles active under a rollup fork.
// P256VERIFY arrives with Fjord at its original price.
func PrecompilesFor(spec SpecID) *vm.PrecompileSet {
	evmSpec := spec.EVMSpec()
	ps := []vm.Precompile{vm.EcRecoverPrecompile}
	if evmSpec.Enabled(vm.Cancun) {
		ps = append(ps, vm.PointEvaluationPrecompile)
	}
	if spec.Enabled(Fjord) {
		p256 := vm.P256VerifyPrecompile
		p256.Gas = vm.FixedGas(vm.P256VerifyGas)
		ps = append(ps, p256)
	}
	if evmSpec.Enabled(vm.Prague) {
		ps = append(ps, vm.BLS12G1AddPrecompile)
	}
	return vm.NewPrecompileSet(ps...)
}
