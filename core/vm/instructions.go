package vm

import (
	"github.com/eth2030/evmcore/core/types"
	"github.com/eth2030/evmcore/crypto"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func opAdd(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.Add(&x, y)
	return nil, nil
}

func opSub(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.Sub(&x, y)
	return nil, nil
}

func opMul(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.Mul(&x, y)
	return nil, nil
}

func opDiv(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.Div(&x, y)
	return nil, nil
}

func opSdiv(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.SDiv(&x, y)
	return nil, nil
}

func opMod(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.Mod(&x, y)
	return nil, nil
}

func opSmod(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.SMod(&x, y)
	return nil, nil
}

func opExp(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	base, exponent := scope.Stack.pop(), scope.Stack.peek()
	exponent.Exp(&base, exponent)
	return nil, nil
}

func opSignExtend(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	back, num := scope.Stack.pop(), scope.Stack.peek()
	num.ExtendSign(num, &back)
	return nil, nil
}

func opAddmod(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	x, y, z := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.peek()
	z.AddMod(&x, &y, z)
	return nil, nil
}

func opMulmod(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	x, y, z := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.peek()
	z.MulMod(&x, &y, z)
	return nil, nil
}

func setBool(v *uint256.Int, b bool) {
	if b {
		v.SetOne()
	} else {
		v.Clear()
	}
}

func opLt(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	setBool(y, x.Lt(y))
	return nil, nil
}

func opGt(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	setBool(y, x.Gt(y))
	return nil, nil
}

func opSlt(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	setBool(y, x.Slt(y))
	return nil, nil
}

func opSgt(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	setBool(y, x.Sgt(y))
	return nil, nil
}

func opEq(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	setBool(y, x.Eq(y))
	return nil, nil
}

func opIszero(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.peek()
	setBool(x, x.IsZero())
	return nil, nil
}

func opAnd(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.And(&x, y)
	return nil, nil
}

func opOr(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.Or(&x, y)
	return nil, nil
}

func opXor(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	x, y := scope.Stack.pop(), scope.Stack.peek()
	y.Xor(&x, y)
	return nil, nil
}

func opNot(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.peek()
	x.Not(x)
	return nil, nil
}

func opByte(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	th, val := scope.Stack.pop(), scope.Stack.peek()
	val.Byte(&th)
	return nil, nil
}

func opSHL(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	shift, value := scope.Stack.pop(), scope.Stack.peek()
	if shift.LtUint64(256) {
		value.Lsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil, nil
}

func opSHR(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	shift, value := scope.Stack.pop(), scope.Stack.peek()
	if shift.LtUint64(256) {
		value.Rsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
	return nil, nil
}

func opSAR(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	shift, value := scope.Stack.pop(), scope.Stack.peek()
	if shift.GtUint64(255) {
		if value.Sign() >= 0 {
			value.Clear()
		} else {
			value.SetAllOne()
		}
		return nil, nil
	}
	value.SRsh(value, uint(shift.Uint64()))
	return nil, nil
}

func opKeccak256(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	offset, size := scope.Stack.pop(), scope.Stack.peek()
	data := scope.Memory.GetPtr(offset.Uint64(), size.Uint64())
	size.SetBytes(crypto.Keccak256(data))
	return nil, nil
}

func opAddress(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).SetBytes(scope.Contract.Address[:]))
	return nil, nil
}

func opBalance(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	slot := scope.Stack.peek()
	slot.Set(evm.StateDB.GetBalance(types.Address(slot.Bytes20())))
	return nil, nil
}

func opOrigin(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).SetBytes(evm.Tx.Origin[:]))
	return nil, nil
}

func opCaller(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).SetBytes(scope.Contract.Caller[:]))
	return nil, nil
}

func opCallValue(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(scope.Contract.Value)
	return nil, nil
}

// getData returns size bytes of data from start, zero-padded past the end.
func getData(data []byte, start, size uint64) []byte {
	length := uint64(len(data))
	if start > length {
		start = length
	}
	end := start + size
	if end > length || end < start {
		end = length
	}
	return common.RightPadBytes(data[start:end], int(size))
}

func opCallDataLoad(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.peek()
	if offset, overflow := x.Uint64WithOverflow(); !overflow {
		x.SetBytes(getData(scope.Contract.Input, offset, 32))
	} else {
		x.Clear()
	}
	return nil, nil
}

func opCallDataSize(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).SetUint64(uint64(len(scope.Contract.Input))))
	return nil, nil
}

func copyToMemory(scope *ScopeContext, src []byte) {
	var (
		memOffset  = scope.Stack.pop()
		dataOffset = scope.Stack.pop()
		length     = scope.Stack.pop()
	)
	offset, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		offset = ^uint64(0)
	}
	scope.Memory.Set(memOffset.Uint64(), length.Uint64(), getData(src, offset, length.Uint64()))
}

func opCallDataCopy(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	copyToMemory(scope, scope.Contract.Input)
	return nil, nil
}

func opCodeSize(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).SetUint64(uint64(len(scope.Contract.Code))))
	return nil, nil
}

func opCodeCopy(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	copyToMemory(scope, scope.Contract.Code)
	return nil, nil
}

func opGasprice(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	v := new(uint256.Int)
	if evm.Tx.GasPrice != nil {
		v.Set(evm.Tx.GasPrice)
	}
	scope.Stack.push(v)
	return nil, nil
}

func opExtCodeSize(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	slot := scope.Stack.peek()
	slot.SetUint64(uint64(len(evm.StateDB.GetCode(types.Address(slot.Bytes20())))))
	return nil, nil
}

func opExtCodeCopy(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	a := scope.Stack.pop()
	copyToMemory(scope, evm.StateDB.GetCode(types.Address(a.Bytes20())))
	return nil, nil
}

func opReturnDataSize(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).SetUint64(uint64(len(scope.ReturnData))))
	return nil, nil
}

func opReturnDataCopy(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	var (
		memOffset  = scope.Stack.pop()
		dataOffset = scope.Stack.pop()
		length     = scope.Stack.pop()
	)
	offset, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		return nil, HaltReturnDataOutOfBounds
	}
	end := offset + length.Uint64()
	if end < offset || uint64(len(scope.ReturnData)) < end {
		return nil, HaltReturnDataOutOfBounds
	}
	scope.Memory.Set(memOffset.Uint64(), length.Uint64(), scope.ReturnData[offset:end])
	return nil, nil
}

func opExtCodeHash(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	slot := scope.Stack.peek()
	addr := types.Address(slot.Bytes20())
	if evm.StateDB.Empty(addr) {
		slot.Clear()
	} else {
		h := evm.StateDB.GetCodeHash(addr)
		slot.SetBytes(h[:])
	}
	return nil, nil
}

func opBlockhash(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	num := scope.Stack.peek()
	n, overflow := num.Uint64WithOverflow()
	if overflow {
		num.Clear()
		return nil, nil
	}
	upper := evm.Block.Number
	var lower uint64
	if upper > 256 {
		lower = upper - 256
	}
	if n < lower || n >= upper {
		num.Clear()
		return nil, nil
	}
	var h types.Hash
	if evm.Block.GetHash != nil {
		h = evm.Block.GetHash(n)
	} else {
		h = evm.StateDB.BlockHash(n)
	}
	num.SetBytes(h[:])
	return nil, nil
}

func opCoinbase(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).SetBytes(evm.Block.Coinbase[:]))
	return nil, nil
}

func opTimestamp(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).SetUint64(evm.Block.Time))
	return nil, nil
}

func opNumber(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).SetUint64(evm.Block.Number))
	return nil, nil
}

func opPrevRandao(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).SetBytes(evm.Block.PrevRandao[:]))
	return nil, nil
}

func opGasLimit(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).SetUint64(evm.Block.GasLimit))
	return nil, nil
}

func opChainID(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).SetUint64(evm.Config.ChainID))
	return nil, nil
}

func opSelfBalance(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).Set(evm.StateDB.GetBalance(scope.Contract.Address)))
	return nil, nil
}

func pushOptional(scope *ScopeContext, v *uint256.Int) {
	out := new(uint256.Int)
	if v != nil {
		out.Set(v)
	}
	scope.Stack.push(out)
}

func opBaseFee(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	pushOptional(scope, evm.Block.BaseFee)
	return nil, nil
}

func opBlobHash(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	idx := scope.Stack.peek()
	if idx.LtUint64(uint64(len(evm.Tx.BlobHashes))) {
		h := evm.Tx.BlobHashes[idx.Uint64()]
		idx.SetBytes(h[:])
	} else {
		idx.Clear()
	}
	return nil, nil
}

func opBlobBaseFee(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	pushOptional(scope, evm.Block.BlobBaseFee)
	return nil, nil
}

func opPop(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	scope.Stack.pop()
	return nil, nil
}

func opMload(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	v := scope.Stack.peek()
	v.SetBytes(scope.Memory.GetPtr(v.Uint64(), 32))
	return nil, nil
}

func opMstore(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	mStart, val := scope.Stack.pop(), scope.Stack.pop()
	scope.Memory.Set32(mStart.Uint64(), &val)
	return nil, nil
}

func opMstore8(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	off, val := scope.Stack.pop(), scope.Stack.pop()
	scope.Memory.store[off.Uint64()] = byte(val.Uint64())
	return nil, nil
}

func opSload(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	loc := scope.Stack.peek()
	key := types.Hash(loc.Bytes32())
	val := evm.StateDB.GetState(scope.Contract.Address, key)
	loc.SetBytes(val[:])
	if evm.Config.Inspector != nil {
		evm.Config.Inspector.StorageAccess(scope.Contract.Address, key, val, false)
	}
	return nil, nil
}

func opSstore(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	if scope.Contract.Static {
		return nil, HaltWriteProtection
	}
	loc, val := scope.Stack.pop(), scope.Stack.pop()
	key, value := types.Hash(loc.Bytes32()), types.Hash(val.Bytes32())
	evm.StateDB.SetState(scope.Contract.Address, key, value)
	if evm.Config.Inspector != nil {
		evm.Config.Inspector.StorageAccess(scope.Contract.Address, key, value, true)
	}
	return nil, nil
}

func opJump(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	pos := scope.Stack.pop()
	if !scope.Contract.validJumpdest(&pos) {
		return nil, HaltInvalidJump
	}
	// The interpreter loop increments pc after every instruction.
	*pc = pos.Uint64() - 1
	return nil, nil
}

func opJumpi(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	pos, cond := scope.Stack.pop(), scope.Stack.pop()
	if cond.IsZero() {
		return nil, nil
	}
	if !scope.Contract.validJumpdest(&pos) {
		return nil, HaltInvalidJump
	}
	*pc = pos.Uint64() - 1
	return nil, nil
}

func opJumpdest(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	return nil, nil
}

func opPc(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).SetUint64(*pc))
	return nil, nil
}

func opMsize(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).SetUint64(uint64(scope.Memory.Len())))
	return nil, nil
}

func opGas(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int).SetUint64(scope.Contract.Gas))
	return nil, nil
}

func opTload(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	loc := scope.Stack.peek()
	val := evm.StateDB.GetTransientState(scope.Contract.Address, types.Hash(loc.Bytes32()))
	loc.SetBytes(val[:])
	return nil, nil
}

func opTstore(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	if scope.Contract.Static {
		return nil, HaltWriteProtection
	}
	loc, val := scope.Stack.pop(), scope.Stack.pop()
	evm.StateDB.SetTransientState(scope.Contract.Address, types.Hash(loc.Bytes32()), types.Hash(val.Bytes32()))
	return nil, nil
}

func opMcopy(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	dst, src, length := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop()
	scope.Memory.Copy(dst.Uint64(), src.Uint64(), length.Uint64())
	return nil, nil
}

func opPush0(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int))
	return nil, nil
}

func makePush(size uint64) executionFunc {
	return func(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
		var (
			codeLen = uint64(len(scope.Contract.Code))
			start   = min(codeLen, *pc+1)
			end     = min(codeLen, start+size)
		)
		v := new(uint256.Int).SetBytes(common.RightPadBytes(scope.Contract.Code[start:end], int(size)))
		scope.Stack.push(v)
		*pc += size
		return nil, nil
	}
}

func makeDup(n int) executionFunc {
	return func(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
		scope.Stack.dup(n)
		return nil, nil
	}
}

func makeSwap(n int) executionFunc {
	return func(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
		scope.Stack.swap(n)
		return nil, nil
	}
}

func makeLog(topics int) executionFunc {
	return func(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
		if scope.Contract.Static {
			return nil, HaltWriteProtection
		}
		mStart, mSize := scope.Stack.pop(), scope.Stack.pop()
		log := &types.Log{
			Address: scope.Contract.Address,
			Topics:  make([]types.Hash, topics),
			Data:    scope.Memory.GetCopy(mStart.Uint64(), mSize.Uint64()),
		}
		for i := 0; i < topics; i++ {
			t := scope.Stack.pop()
			log.Topics[i] = t.Bytes32()
		}
		evm.StateDB.AddLog(log)
		if evm.Config.Inspector != nil {
			evm.Config.Inspector.Log(log)
		}
		return nil, nil
	}
}

func opStop(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	scope.reason = SuccessStop
	return nil, nil
}

func opReturn(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	offset, size := scope.Stack.pop(), scope.Stack.pop()
	scope.reason = SuccessReturn
	return scope.Memory.GetCopy(offset.Uint64(), size.Uint64()), nil
}

func opRevert(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	offset, size := scope.Stack.pop(), scope.Stack.pop()
	return scope.Memory.GetCopy(offset.Uint64(), size.Uint64()), ErrExecutionReverted
}

func opInvalid(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	return nil, HaltInvalidFEOpcode
}

// opSelfdestruct applies EIP-6780 from Cancun: the account is only deleted
// when it was created in the same transaction, otherwise only its balance
// moves.
func opSelfdestruct(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	if scope.Contract.Static {
		return nil, HaltWriteProtection
	}
	var (
		self        = scope.Contract.Address
		beneficiary = scope.Stack.pop()
		to          = types.Address(beneficiary.Bytes20())
		balance     = new(uint256.Int).Set(evm.StateDB.GetBalance(self))
	)
	if evm.Config.Spec.Enabled(Cancun) && !evm.StateDB.CreatedInTx(self) {
		if to != self {
			evm.StateDB.SubBalance(self, balance)
			evm.StateDB.AddBalance(to, balance)
		}
	} else {
		evm.StateDB.AddBalance(to, balance)
		evm.StateDB.SelfDestruct(self)
	}
	scope.reason = SuccessSelfDestruct
	return nil, nil
}

func opCreate(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	if scope.Contract.Static {
		return nil, HaltWriteProtection
	}
	var (
		value  = scope.Stack.pop()
		offset = scope.Stack.pop()
		size   = scope.Stack.peek()
		input  = scope.Memory.GetCopy(offset.Uint64(), size.Uint64())
	)
	return nil, evm.createFromScope(scope, size, input, &value, nil)
}

func opCreate2(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	if scope.Contract.Static {
		return nil, HaltWriteProtection
	}
	var (
		value  = scope.Stack.pop()
		offset = scope.Stack.pop()
		size   = scope.Stack.pop()
		salt   = scope.Stack.peek()
		input  = scope.Memory.GetCopy(offset.Uint64(), size.Uint64())
	)
	s := *salt
	return nil, evm.createFromScope(scope, salt, input, &value, &s)
}

// createFromScope runs a nested CREATE or CREATE2 with all but 1/64 of the
// remaining gas and writes the created address (or zero) into slot.
func (evm *EVM) createFromScope(scope *ScopeContext, slot *uint256.Int, input []byte, value, salt *uint256.Int) error {
	gas := scope.Contract.Gas
	gas -= gas / CallGasFraction
	scope.Contract.UseGas(gas)

	var (
		res *FrameResult
		err error
	)
	if salt == nil {
		res, err = evm.Create(scope.Contract.Address, input, gas, value)
	} else {
		res, err = evm.Create2(scope.Contract.Address, input, gas, value, salt)
	}
	if err != nil {
		return err
	}
	if res.Succeeded() && res.CreatedAddress != nil {
		slot.SetBytes(res.CreatedAddress[:])
	} else {
		slot.Clear()
	}
	scope.Contract.Gas += res.GasLeft
	if res.Status == StatusRevert {
		scope.ReturnData = res.Output
	} else {
		scope.ReturnData = nil
	}
	return nil
}

// finishCall pushes the success flag, copies output into memory and
// returns unused gas to the calling frame.
func finishCall(scope *ScopeContext, res *FrameResult, retOffset, retSize uint64) {
	flag := new(uint256.Int)
	if res.Succeeded() {
		flag.SetOne()
	}
	scope.Stack.push(flag)
	if res.Status != StatusHalt {
		n := min(retSize, uint64(len(res.Output)))
		scope.Memory.Set(retOffset, n, res.Output[:n])
	}
	scope.Contract.Gas += res.GasLeft
	scope.ReturnData = res.Output
}

func opCall(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	stack := scope.Stack
	stack.pop() // requested gas, already resolved to callGasTemp
	var (
		gas                = evm.callGasTemp
		addr, value        = stack.pop(), stack.pop()
		inOffset, inSize   = stack.pop(), stack.pop()
		retOffset, retSize = stack.pop(), stack.pop()
		toAddr             = types.Address(addr.Bytes20())
		args               = scope.Memory.GetPtr(inOffset.Uint64(), inSize.Uint64())
	)
	if scope.Contract.Static && !value.IsZero() {
		return nil, HaltWriteProtection
	}
	if !value.IsZero() {
		gas += GasCallStipend
	}
	res, err := evm.callFrame(&CallFrame{
		Kind:        CallKindCall,
		Caller:      scope.Contract.Address,
		Address:     toAddr,
		CodeAddress: toAddr,
		Input:       common.CopyBytes(args),
		Value:       &value,
		Gas:         gas,
		Static:      scope.Contract.Static,
	})
	if err != nil {
		return nil, err
	}
	finishCall(scope, res, retOffset.Uint64(), retSize.Uint64())
	return nil, nil
}

func opCallCode(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	stack := scope.Stack
	stack.pop()
	var (
		gas                = evm.callGasTemp
		addr, value        = stack.pop(), stack.pop()
		inOffset, inSize   = stack.pop(), stack.pop()
		retOffset, retSize = stack.pop(), stack.pop()
		toAddr             = types.Address(addr.Bytes20())
		args               = scope.Memory.GetPtr(inOffset.Uint64(), inSize.Uint64())
	)
	if !value.IsZero() {
		gas += GasCallStipend
	}
	res, err := evm.callFrame(&CallFrame{
		Kind:        CallKindCallCode,
		Caller:      scope.Contract.Address,
		Address:     scope.Contract.Address,
		CodeAddress: toAddr,
		Input:       common.CopyBytes(args),
		Value:       &value,
		Gas:         gas,
		Static:      scope.Contract.Static,
	})
	if err != nil {
		return nil, err
	}
	finishCall(scope, res, retOffset.Uint64(), retSize.Uint64())
	return nil, nil
}

func opDelegateCall(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	stack := scope.Stack
	stack.pop()
	var (
		gas                = evm.callGasTemp
		addr               = stack.pop()
		inOffset, inSize   = stack.pop(), stack.pop()
		retOffset, retSize = stack.pop(), stack.pop()
		toAddr             = types.Address(addr.Bytes20())
		args               = scope.Memory.GetPtr(inOffset.Uint64(), inSize.Uint64())
	)
	res, err := evm.callFrame(&CallFrame{
		Kind:        CallKindDelegateCall,
		Caller:      scope.Contract.Caller,
		Address:     scope.Contract.Address,
		CodeAddress: toAddr,
		Input:       common.CopyBytes(args),
		Value:       scope.Contract.Value,
		Gas:         gas,
		Static:      scope.Contract.Static,
	})
	if err != nil {
		return nil, err
	}
	finishCall(scope, res, retOffset.Uint64(), retSize.Uint64())
	return nil, nil
}

func opStaticCall(pc *uint64, evm *EVM, scope *ScopeContext) ([]byte, error) {
	stack := scope.Stack
	stack.pop()
	var (
		gas                = evm.callGasTemp
		addr               = stack.pop()
		inOffset, inSize   = stack.pop(), stack.pop()
		retOffset, retSize = stack.pop(), stack.pop()
		toAddr             = types.Address(addr.Bytes20())
		args               = scope.Memory.GetPtr(inOffset.Uint64(), inSize.Uint64())
	)
	res, err := evm.callFrame(&CallFrame{
		Kind:        CallKindStaticCall,
		Caller:      scope.Contract.Address,
		Address:     toAddr,
		CodeAddress: toAddr,
		Input:       common.CopyBytes(args),
		Value:       new(uint256.Int),
		Gas:         gas,
		Static:      true,
	})
	if err != nil {
		return nil, err
	}
	finishCall(scope, res, retOffset.Uint64(), retSize.Uint64())
	return nil, nil
}
