package core

// Gas tracks the gas of one transaction across the handler stages.
type Gas struct {
	Limit     uint64
	Remaining uint64
	Refunded  uint64
	// Floor is the EIP-7623 minimum of Used.
	Floor uint64
}

// Spent returns the gas consumed before refunds.
func (g *Gas) Spent() uint64 { return g.Limit - g.Remaining }

// Used returns the gas charged to the sender.
func (g *Gas) Used() uint64 { return g.Spent() - g.Refunded }
