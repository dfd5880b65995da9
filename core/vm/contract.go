package vm

import (
	"github.com/eth2030/evmcore/core/types"
	"github.com/holiman/uint256"
)

// Contract is the code and context of one executing frame.
type Contract struct {
	// Caller is the account that initiated the frame (msg.sender).
	Caller types.Address
	// Address is the account whose storage and balance the frame uses.
	Address types.Address
	// CodeAddress is the account the executing code was loaded from. It
	// differs from Address for DELEGATECALL, CALLCODE and delegated EOAs.
	CodeAddress types.Address

	Value *uint256.Int
	Input []byte
	Code  []byte
	Gas   uint64

	// Static forbids state modification (STATICCALL and its children).
	Static bool

	jumpdests bitvec
}

// NewContract prepares a frame running code.
func NewContract(caller, address, codeAddress types.Address, value *uint256.Int, code []byte, gas uint64) *Contract {
	if value == nil {
		value = new(uint256.Int)
	}
	return &Contract{
		Caller:      caller,
		Address:     address,
		CodeAddress: codeAddress,
		Value:       value,
		Code:        code,
		Gas:         gas,
	}
}

// GetOp returns the opcode at pc, or STOP past the end of code.
func (c *Contract) GetOp(pc uint64) OpCode {
	if pc < uint64(len(c.Code)) {
		return OpCode(c.Code[pc])
	}
	return STOP
}

// UseGas deducts gas and reports whether enough was available.
func (c *Contract) UseGas(gas uint64) bool {
	if c.Gas < gas {
		return false
	}
	c.Gas -= gas
	return true
}

// validJumpdest reports whether dest is a JUMPDEST outside push data.
func (c *Contract) validJumpdest(dest *uint256.Int) bool {
	udest, overflow := dest.Uint64WithOverflow()
	if overflow || udest >= uint64(len(c.Code)) {
		return false
	}
	if OpCode(c.Code[udest]) != JUMPDEST {
		return false
	}
	if c.jumpdests == nil {
		c.jumpdests = codeBitmap(c.Code)
	}
	return c.jumpdests.codeSegment(udest)
}

// bitvec marks code positions that hold push data.
type bitvec []byte

func (bits bitvec) set(pos uint64) { bits[pos/8] |= 1 << (pos % 8) }

func (bits bitvec) codeSegment(pos uint64) bool {
	return bits[pos/8]&(1<<(pos%8)) == 0
}

// codeBitmap collects the push-data positions of code.
func codeBitmap(code []byte) bitvec {
	bits := make(bitvec, len(code)/8+1+4)
	for pc := uint64(0); pc < uint64(len(code)); {
		op := OpCode(code[pc])
		pc++
		if !op.IsPush() {
			continue
		}
		n := uint64(op - PUSH1 + 1)
		for i := uint64(0); i < n && pc < uint64(len(code)); i++ {
			bits.set(pc)
			pc++
		}
	}
	return bits
}
