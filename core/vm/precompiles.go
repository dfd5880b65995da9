package vm

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/eth2030/evmcore/core/types"
	"github.com/ethereum/go-ethereum/metrics"
)

var (
	// ErrPrecompileOutOfGas is returned when the supplied gas does not
	// cover the fixed cost. The input is never read in that case.
	ErrPrecompileOutOfGas = errors.New("precompile: out of gas")
	// ErrPrecompileNotFound is returned for addresses outside the set.
	ErrPrecompileNotFound = errors.New("precompile: not found")
	// ErrPrecompileFailure wraps errors raised by a precompile body.
	ErrPrecompileFailure = errors.New("precompile: execution failed")
)

var (
	precompileCallMeter = metrics.NewRegisteredMeter("evmcore/precompile/calls", nil)
	precompileOOGMeter  = metrics.NewRegisteredMeter("evmcore/precompile/oog", nil)
	precompileFailMeter = metrics.NewRegisteredMeter("evmcore/precompile/failures", nil)
)

// PrecompileFunc is the body of a fixed-cost precompile. A nil output with
// a nil error is a valid, empty result.
type PrecompileFunc func(input []byte) ([]byte, error)

// Precompile describes a built-in contract.
type Precompile struct {
	Address types.Address
	Name    string
	// Gas returns the fixed cost under a spec. It must not depend on input.
	Gas func(spec SpecID) uint64
	Run PrecompileFunc
}

// FixedGas returns a gas selector that ignores the SpecID.
func FixedGas(cost uint64) func(SpecID) uint64 {
	return func(SpecID) uint64 { return cost }
}

// PrecompileOutput is the outcome of a dispatched call.
type PrecompileOutput struct {
	GasUsed uint64
	Output  []byte
}

// PrecompileSet is an immutable, address-ordered set of precompiles. A nil
// set is empty.
type PrecompileSet struct {
	byAddr map[types.Address]*Precompile
	addrs  []types.Address
}

// NewPrecompileSet builds a set. Later entries replace earlier ones at the
// same address.
func NewPrecompileSet(ps ...Precompile) *PrecompileSet {
	s := &PrecompileSet{byAddr: make(map[types.Address]*Precompile, len(ps))}
	for i := range ps {
		p := ps[i]
		if _, dup := s.byAddr[p.Address]; !dup {
			s.addrs = append(s.addrs, p.Address)
		}
		s.byAddr[p.Address] = &p
	}
	sort.Slice(s.addrs, func(i, j int) bool {
		return bytes.Compare(s.addrs[i][:], s.addrs[j][:]) < 0
	})
	return s
}

// With returns a new set extended (or overridden) by ps.
func (s *PrecompileSet) With(ps ...Precompile) *PrecompileSet {
	all := make([]Precompile, 0, s.Len()+len(ps))
	for _, addr := range s.Addresses() {
		all = append(all, *s.byAddr[addr])
	}
	return NewPrecompileSet(append(all, ps...)...)
}

// Get returns the precompile registered at addr.
func (s *PrecompileSet) Get(addr types.Address) (Precompile, bool) {
	if s == nil {
		return Precompile{}, false
	}
	p, ok := s.byAddr[addr]
	if !ok {
		return Precompile{}, false
	}
	return *p, true
}

// Contains reports whether addr is a precompile in the set.
func (s *PrecompileSet) Contains(addr types.Address) bool {
	if s == nil {
		return false
	}
	_, ok := s.byAddr[addr]
	return ok
}

// Addresses returns the registered addresses in ascending order.
func (s *PrecompileSet) Addresses() []types.Address {
	if s == nil {
		return nil
	}
	out := make([]types.Address, len(s.addrs))
	copy(out, s.addrs)
	return out
}

// Len returns the number of precompiles.
func (s *PrecompileSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.addrs)
}

// Run dispatches a call to the precompile at addr with a gas limit. The
// cost is checked before the body sees the input; once it runs, the full
// cost is charged whatever the outcome.
func (s *PrecompileSet) Run(addr types.Address, input []byte, gas uint64, spec SpecID) (PrecompileOutput, error) {
	p, ok := s.Get(addr)
	if !ok {
		return PrecompileOutput{}, fmt.Errorf("%w: %s", ErrPrecompileNotFound, addr)
	}
	precompileCallMeter.Mark(1)

	cost := p.Gas(spec)
	if cost > gas {
		precompileOOGMeter.Mark(1)
		return PrecompileOutput{}, ErrPrecompileOutOfGas
	}
	out, err := p.Run(input)
	if err != nil {
		precompileFailMeter.Mark(1)
		return PrecompileOutput{GasUsed: cost}, fmt.Errorf("%w: %s: %v", ErrPrecompileFailure, p.Name, err)
	}
	return PrecompileOutput{GasUsed: cost, Output: out}, nil
}
