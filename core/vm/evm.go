package vm

import (
	"errors"

	"github.com/eth2030/evmcore/core/types"
	"github.com/eth2030/evmcore/crypto"
	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Call runs a message call from caller to addr, transferring value.
// The returned error is only set for backend failures; reverts and halts
// are reported through the FrameResult.
func (evm *EVM) Call(caller, addr types.Address, input []byte, gas uint64, value *uint256.Int) (*FrameResult, error) {
	return evm.callFrame(&CallFrame{
		Kind:        CallKindCall,
		Caller:      caller,
		Address:     addr,
		CodeAddress: addr,
		Input:       input,
		Value:       value,
		Gas:         gas,
	})
}

// CallCode runs addr's code against caller's account.
func (evm *EVM) CallCode(caller, addr types.Address, input []byte, gas uint64, value *uint256.Int) (*FrameResult, error) {
	return evm.callFrame(&CallFrame{
		Kind:        CallKindCallCode,
		Caller:      caller,
		Address:     caller,
		CodeAddress: addr,
		Input:       input,
		Value:       value,
		Gas:         gas,
	})
}

// DelegateCall runs addr's code in self's context, keeping origCaller and
// value from the parent frame.
func (evm *EVM) DelegateCall(origCaller, self, addr types.Address, input []byte, gas uint64, value *uint256.Int) (*FrameResult, error) {
	return evm.callFrame(&CallFrame{
		Kind:        CallKindDelegateCall,
		Caller:      origCaller,
		Address:     self,
		CodeAddress: addr,
		Input:       input,
		Value:       value,
		Gas:         gas,
	})
}

// StaticCall runs a call that may not modify state.
func (evm *EVM) StaticCall(caller, addr types.Address, input []byte, gas uint64) (*FrameResult, error) {
	return evm.callFrame(&CallFrame{
		Kind:        CallKindStaticCall,
		Caller:      caller,
		Address:     addr,
		CodeAddress: addr,
		Input:       input,
		Value:       new(uint256.Int),
		Gas:         gas,
		Static:      true,
	})
}

// Create deploys code at the address derived from caller's nonce.
func (evm *EVM) Create(caller types.Address, code []byte, gas uint64, value *uint256.Int) (*FrameResult, error) {
	return evm.createFrame(&CallFrame{
		Kind:   CallKindCreate,
		Caller: caller,
		Input:  code,
		Value:  value,
		Gas:    gas,
	}, nil)
}

// Create2 deploys code at the address derived from caller, salt and the
// init code hash.
func (evm *EVM) Create2(caller types.Address, code []byte, gas uint64, value *uint256.Int, salt *uint256.Int) (*FrameResult, error) {
	return evm.createFrame(&CallFrame{
		Kind:   CallKindCreate2,
		Caller: caller,
		Input:  code,
		Value:  value,
		Gas:    gas,
	}, salt)
}

func (evm *EVM) enter(f *CallFrame) {
	if evm.Config.Inspector != nil {
		evm.Config.Inspector.CallEnter(f)
	}
}

func (evm *EVM) exit(f *CallFrame, res *FrameResult) *FrameResult {
	if evm.Config.Inspector != nil {
		evm.Config.Inspector.CallExit(f, res)
	}
	return res
}

// preflight is the result of a frame that failed before executing. The
// caller keeps the whole allowance.
func preflight(f *CallFrame, halt HaltReason) *FrameResult {
	return &FrameResult{Status: StatusHalt, Halt: halt, GasLeft: f.Gas}
}

// resolveCode loads the code a call frame executes. For an EIP-7702
// delegated account it follows the marker one level, never into a
// precompile, and rewrites the frame's CodeAddress to the delegate.
func (evm *EVM) resolveCode(f *CallFrame) []byte {
	code := evm.StateDB.GetCode(f.CodeAddress)
	if !evm.Config.Spec.Enabled(Prague) {
		return code
	}
	target, ok := types.ResolveDelegation(code)
	if !ok {
		return code
	}
	f.Delegated = true
	f.CodeAddress = target
	if evm.precompiles.Contains(target) {
		return nil
	}
	return evm.StateDB.GetCode(target)
}

func (evm *EVM) callFrame(f *CallFrame) (*FrameResult, error) {
	f.Depth = evm.depth
	if f.Value == nil {
		f.Value = new(uint256.Int)
	}
	isPrecompile := evm.precompiles.Contains(f.CodeAddress)
	var code []byte
	if !isPrecompile {
		code = evm.resolveCode(f)
	}
	evm.enter(f)

	if evm.depth > CallDepthLimit {
		return evm.exit(f, preflight(f, HaltCallTooDeep)), nil
	}
	transfers := (f.Kind == CallKindCall || f.Kind == CallKindCallCode) && !f.Value.IsZero()
	if transfers && evm.StateDB.GetBalance(f.Caller).Lt(f.Value) {
		return evm.exit(f, preflight(f, HaltOutOfFunds)), nil
	}

	snapshot := evm.StateDB.Snapshot()
	if f.Kind == CallKindCall {
		if !evm.StateDB.Exist(f.Address) {
			if !isPrecompile && f.Value.IsZero() {
				return evm.exit(f, &FrameResult{Status: StatusSuccess, Success: SuccessStop, GasLeft: f.Gas}), nil
			}
			evm.StateDB.CreateAccount(f.Address)
		}
		if transfers {
			evm.StateDB.SubBalance(f.Caller, f.Value)
			evm.StateDB.AddBalance(f.Address, f.Value)
		}
	}

	if isPrecompile {
		out, err := evm.precompiles.Run(f.CodeAddress, f.Input, f.Gas, evm.Config.Spec)
		if err != nil {
			evm.StateDB.RevertToSnapshot(snapshot)
			halt := HaltPrecompileError
			if errors.Is(err, ErrPrecompileOutOfGas) {
				halt = HaltPrecompileOutOfGas
			}
			return evm.exit(f, &FrameResult{Status: StatusHalt, Halt: halt}), nil
		}
		return evm.exit(f, &FrameResult{
			Status:  StatusSuccess,
			Success: SuccessReturn,
			Output:  out.Output,
			GasLeft: f.Gas - out.GasUsed,
		}), nil
	}
	if len(code) == 0 {
		return evm.exit(f, &FrameResult{Status: StatusSuccess, Success: SuccessStop, GasLeft: f.Gas}), nil
	}

	contract := NewContract(f.Caller, f.Address, f.CodeAddress, f.Value, code, f.Gas)
	contract.Input = f.Input
	contract.Static = f.Static

	evm.depth++
	ret, reason, err := evm.run(contract)
	evm.depth--

	res, err := evm.frameResult(snapshot, contract, ret, reason, err)
	if err != nil {
		evm.exit(f, &FrameResult{Status: StatusHalt, Halt: HaltFatalExternalError})
		return nil, err
	}
	return evm.exit(f, res), nil
}

// frameResult maps the interpreter outcome to a FrameResult, reverting
// the frame's changes on revert or halt.
func (evm *EVM) frameResult(snapshot int, contract *Contract, ret []byte, reason SuccessReason, err error) (*FrameResult, error) {
	var serr *StateError
	switch {
	case err == nil:
		return &FrameResult{Status: StatusSuccess, Success: reason, Output: ret, GasLeft: contract.Gas}, nil
	case errors.As(err, &serr):
		return nil, serr
	case errors.Is(err, ErrExecutionReverted):
		evm.StateDB.RevertToSnapshot(snapshot)
		return &FrameResult{Status: StatusRevert, Output: ret, GasLeft: contract.Gas}, nil
	}
	evm.StateDB.RevertToSnapshot(snapshot)
	halt, ok := asHalt(err)
	if !ok {
		halt = HaltInvalidOpcode
	}
	return &FrameResult{Status: StatusHalt, Halt: halt}, nil
}

// createAddress derives the new contract address from the current nonce
// (CREATE) or from salt and the init code hash (CREATE2).
func createAddress(caller types.Address, nonce uint64, salt *uint256.Int, code []byte) types.Address {
	if salt == nil {
		return types.Address(gethcrypto.CreateAddress(common.Address(caller), nonce))
	}
	return types.Address(gethcrypto.CreateAddress2(common.Address(caller), salt.Bytes32(), crypto.Keccak256(code)))
}

func (evm *EVM) createFrame(f *CallFrame, salt *uint256.Int) (*FrameResult, error) {
	f.Depth = evm.depth
	if f.Value == nil {
		f.Value = new(uint256.Int)
	}
	nonce := evm.StateDB.GetNonce(f.Caller)
	addr := createAddress(f.Caller, nonce, salt, f.Input)
	f.Address, f.CodeAddress = addr, addr
	evm.enter(f)

	if evm.depth > CallDepthLimit {
		return evm.exit(f, preflight(f, HaltCallTooDeep)), nil
	}
	if evm.StateDB.GetBalance(f.Caller).Lt(f.Value) {
		return evm.exit(f, preflight(f, HaltOutOfFunds)), nil
	}
	if nonce+1 < nonce {
		return evm.exit(f, preflight(f, HaltNonceOverflow)), nil
	}
	evm.StateDB.SetNonce(f.Caller, nonce+1)
	evm.StateDB.AddAddressToAccessList(addr)

	if h := evm.StateDB.GetCodeHash(addr); evm.StateDB.GetNonce(addr) != 0 || (h != (types.Hash{}) && h != types.EmptyCodeHash) {
		return evm.exit(f, &FrameResult{Status: StatusHalt, Halt: HaltCreateCollision}), nil
	}

	snapshot := evm.StateDB.Snapshot()
	evm.StateDB.CreateAccount(addr)
	evm.StateDB.SetNonce(addr, 1)
	if !f.Value.IsZero() {
		evm.StateDB.SubBalance(f.Caller, f.Value)
		evm.StateDB.AddBalance(addr, f.Value)
	}

	contract := NewContract(f.Caller, addr, addr, f.Value, f.Input, f.Gas)
	evm.depth++
	ret, reason, err := evm.run(contract)
	evm.depth--

	if err == nil {
		err = evm.deposit(contract, addr, ret)
	}
	res, err := evm.frameResult(snapshot, contract, ret, reason, err)
	if err != nil {
		evm.exit(f, &FrameResult{Status: StatusHalt, Halt: HaltFatalExternalError})
		return nil, err
	}
	if res.Succeeded() {
		res.CreatedAddress = &addr
	}
	return evm.exit(f, res), nil
}

// deposit validates and stores the runtime code returned by init code.
func (evm *EVM) deposit(contract *Contract, addr types.Address, code []byte) error {
	if len(code) > MaxCodeSize {
		return HaltCodeSizeLimit
	}
	if len(code) > 0 && code[0] == 0xEF && evm.Config.Spec.Enabled(London) {
		return HaltCreateStartsWithEF
	}
	if !contract.UseGas(uint64(len(code)) * GasCreateData) {
		return HaltOutOfGas
	}
	evm.StateDB.SetCode(addr, code)
	if dbErr := evm.StateDB.Error(); dbErr != nil {
		return &StateError{Err: dbErr}
	}
	return nil
}
