package rollup

import (
	"github.com/eth2030/evmcore/core"
	"github.com/eth2030/evmcore/core/state"
)

// NewEvm returns an Evm over db running the rollup pipeline under spec.
// The Ethereum ruleset and the precompiles follow from spec; cfg supplies
// the chain id and validation switches.
func NewEvm(db state.Database, spec SpecID, cfg *core.Config) *core.Evm {
	if cfg == nil {
		cfg = core.DefaultConfig()
	} else {
		cfg = cfg.Copy()
	}
	cfg.Spec = spec.EVMSpec()

	ctx := core.NewContext(db, cfg)
	ctx.Precompiles = PrecompilesFor(spec)
	return core.NewEvmWithHooks(ctx, Hooks{Spec: spec})
}
