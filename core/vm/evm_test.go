package vm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/eth2030/evmcore/core/state"
	"github.com/eth2030/evmcore/core/types"
	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

var (
	testCaller = types.HexToAddress("0x00000000000000000000000000000000000c0de1")
	testTarget = types.HexToAddress("0x00000000000000000000000000000000000c0de2")
	testOther  = types.HexToAddress("0x00000000000000000000000000000000000c0de3")
)

// returnWord is code that returns the 32-byte word v.
func returnWord(v byte) []byte {
	return []byte{
		byte(PUSH1), v, byte(PUSH1), 0, byte(MSTORE),
		byte(PUSH1), 32, byte(PUSH1), 0, byte(RETURN),
	}
}

// storeOne is code that writes 1 to slot 0.
var storeOne = []byte{byte(PUSH1), 1, byte(PUSH1), 0, byte(SSTORE), byte(STOP)}

type testEnv struct {
	evm     *EVM
	journal *state.Journal
	db      *state.MemoryDB
}

func newTestEnv(spec SpecID, insp Inspector) *testEnv {
	db := state.NewMemoryDB()
	db.SetAccount(testCaller, uint256.NewInt(1_000_000), 0, nil)
	j := state.NewJournal(db)
	j.BeginTx()
	evm := NewEVM(
		BlockContext{Number: 100, Time: 1700000000, GasLimit: 30_000_000, BaseFee: uint256.NewInt(7)},
		TxContext{Origin: testCaller, GasPrice: uint256.NewInt(10)},
		j,
		Config{ChainID: 1, Spec: spec, Inspector: insp},
	)
	return &testEnv{evm: evm, journal: j, db: db}
}

func (e *testEnv) deploy(addr types.Address, code []byte) {
	e.db.SetAccount(addr, nil, 1, code)
}

func (e *testEnv) call(t *testing.T, to types.Address, gas uint64) *FrameResult {
	t.Helper()
	res, err := e.evm.Call(testCaller, to, nil, gas, new(uint256.Int))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	return res
}

func TestCallReturnsWord(t *testing.T) {
	env := newTestEnv(Cancun, nil)
	env.deploy(testTarget, returnWord(30))
	res := env.call(t, testTarget, 100000)
	if !res.Succeeded() || res.Success != SuccessReturn {
		t.Fatalf("result = %+v", res)
	}
	if want := common.LeftPadBytes([]byte{30}, 32); !bytes.Equal(res.Output, want) {
		t.Fatalf("output = %x", res.Output)
	}
	// 4 PUSH1 + MSTORE (3 + 3 memory) + RETURN (0).
	if used := 100000 - res.GasLeft; used != 18 {
		t.Fatalf("gas used = %d, want 18", used)
	}
}

func TestCallArithmetic(t *testing.T) {
	env := newTestEnv(Cancun, nil)
	// (10 + 20) * 3 - 5 = 85, then RETURN the word.
	code := []byte{
		byte(PUSH1), 5,
		byte(PUSH1), 3,
		byte(PUSH1), 20,
		byte(PUSH1), 10,
		byte(ADD), byte(MUL), byte(SUB),
		byte(PUSH1), 0, byte(MSTORE),
		byte(PUSH1), 32, byte(PUSH1), 0, byte(RETURN),
	}
	env.deploy(testTarget, code)
	res := env.call(t, testTarget, 100000)
	if got := new(uint256.Int).SetBytes(res.Output).Uint64(); got != 85 {
		t.Fatalf("got %d, want 85", got)
	}
}

func TestCallHalts(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want HaltReason
	}{
		{"designated invalid", []byte{byte(INVALID)}, HaltInvalidFEOpcode},
		{"undefined opcode", []byte{0x0c}, HaltInvalidOpcode},
		{"stack underflow", []byte{byte(ADD)}, HaltStackUnderflow},
		{"bad jump", []byte{byte(PUSH1), 3, byte(JUMP), byte(STOP)}, HaltInvalidJump},
		{"jump into push data", []byte{byte(PUSH1), 4, byte(JUMP), byte(PUSH1), byte(JUMPDEST)}, HaltInvalidJump},
		{"infinite loop", []byte{byte(JUMPDEST), byte(PUSH1), 0, byte(JUMP)}, HaltOutOfGas},
		{"returndata out of bounds", []byte{byte(PUSH1), 1, byte(PUSH1), 0, byte(PUSH1), 0, byte(RETURNDATACOPY)}, HaltReturnDataOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(Cancun, nil)
			env.deploy(testTarget, tt.code)
			res := env.call(t, testTarget, 50000)
			if res.Status != StatusHalt || res.Halt != tt.want {
				t.Fatalf("result = %v/%v, want halt %v", res.Status, res.Halt, tt.want)
			}
			if res.GasLeft != 0 {
				t.Fatalf("halt left %d gas", res.GasLeft)
			}
		})
	}
}

func TestRevertKeepsGasAndDropsState(t *testing.T) {
	env := newTestEnv(Cancun, nil)
	code := []byte{
		byte(PUSH1), 1, byte(PUSH1), 0, byte(SSTORE),
		byte(PUSH1), 0, byte(PUSH1), 0, byte(REVERT),
	}
	env.deploy(testTarget, code)
	res := env.call(t, testTarget, 100000)
	if res.Status != StatusRevert {
		t.Fatalf("status = %v", res.Status)
	}
	if res.GasLeft == 0 {
		t.Fatal("revert consumed all gas")
	}
	if got := env.journal.GetState(testTarget, types.Hash{}); got != (types.Hash{}) {
		t.Fatalf("reverted store visible: %x", got)
	}
}

func TestStaticCallWriteProtection(t *testing.T) {
	env := newTestEnv(Cancun, nil)
	env.deploy(testTarget, storeOne)
	res, err := env.evm.StaticCall(testCaller, testTarget, nil, 100000)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != StatusHalt || res.Halt != HaltWriteProtection {
		t.Fatalf("result = %v/%v", res.Status, res.Halt)
	}
}

func TestTransientStorage(t *testing.T) {
	env := newTestEnv(Cancun, nil)
	code := []byte{
		byte(PUSH1), 7, byte(PUSH1), 1, byte(TSTORE),
		byte(PUSH1), 1, byte(TLOAD),
		byte(PUSH1), 0, byte(MSTORE),
		byte(PUSH1), 32, byte(PUSH1), 0, byte(RETURN),
	}
	env.deploy(testTarget, code)
	res := env.call(t, testTarget, 100000)
	if got := new(uint256.Int).SetBytes(res.Output).Uint64(); got != 7 {
		t.Fatalf("TLOAD = %d, want 7", got)
	}

	// TSTORE is not defined before Cancun.
	env = newTestEnv(Shanghai, nil)
	env.deploy(testTarget, code)
	if res := env.call(t, testTarget, 100000); res.Halt != HaltInvalidOpcode {
		t.Fatalf("shanghai TSTORE = %v", res.Halt)
	}
}

func TestNestedCall(t *testing.T) {
	env := newTestEnv(Cancun, nil)
	env.deploy(testOther, returnWord(42))
	code := []byte{
		byte(PUSH1), 32, // retSize
		byte(PUSH1), 0, // retOffset
		byte(PUSH1), 0, // inSize
		byte(PUSH1), 0, // inOffset
		byte(PUSH1), 0, // value
		byte(PUSH20),
	}
	code = append(code, testOther[:]...)
	code = append(code, byte(GAS), byte(CALL), byte(POP),
		byte(PUSH1), 32, byte(PUSH1), 0, byte(RETURN))
	env.deploy(testTarget, code)

	res := env.call(t, testTarget, 200000)
	if !res.Succeeded() {
		t.Fatalf("result = %+v", res)
	}
	if got := new(uint256.Int).SetBytes(res.Output).Uint64(); got != 42 {
		t.Fatalf("nested output = %d, want 42", got)
	}
}

func TestCallTransfersValue(t *testing.T) {
	env := newTestEnv(Cancun, nil)
	res, err := env.evm.Call(testCaller, testOther, nil, 21000, uint256.NewInt(500))
	if err != nil || !res.Succeeded() {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if got := env.journal.GetBalance(testOther).Uint64(); got != 500 {
		t.Fatalf("recipient balance = %d", got)
	}

	res, _ = env.evm.Call(testOther, testCaller, nil, 21000, uint256.NewInt(501))
	if res.Halt != HaltOutOfFunds || res.GasLeft != 21000 {
		t.Fatalf("overdraft result = %+v", res)
	}
}

func TestDelegatedCallRunsDelegateCodeOnAuthority(t *testing.T) {
	env := newTestEnv(Prague, nil)
	env.deploy(testOther, storeOne)
	env.db.SetAccount(testTarget, nil, 1, types.NewDelegation(testOther).Bytes())

	res := env.call(t, testTarget, 100000)
	if !res.Succeeded() {
		t.Fatalf("result = %+v", res)
	}
	one := types.BytesToHash([]byte{1})
	if got := env.journal.GetState(testTarget, types.Hash{}); got != one {
		t.Fatalf("authority slot = %x, want 1", got)
	}
	if got := env.journal.GetState(testOther, types.Hash{}); got != (types.Hash{}) {
		t.Fatalf("delegate storage written: %x", got)
	}
}

func TestDelegationIgnoredBeforePrague(t *testing.T) {
	env := newTestEnv(Cancun, nil)
	env.deploy(testOther, storeOne)
	env.db.SetAccount(testTarget, nil, 1, types.NewDelegation(testOther).Bytes())

	// The marker runs as bytecode; 0xEF is undefined.
	res := env.call(t, testTarget, 100000)
	if res.Status != StatusHalt || res.Halt != HaltInvalidOpcode {
		t.Fatalf("result = %v/%v", res.Status, res.Halt)
	}
}

func TestDelegationFollowedOneLevel(t *testing.T) {
	env := newTestEnv(Prague, nil)
	env.deploy(types.HexToAddress("0xc0de4"), storeOne)
	env.db.SetAccount(testOther, nil, 1, types.NewDelegation(types.HexToAddress("0xc0de4")).Bytes())
	env.db.SetAccount(testTarget, nil, 1, types.NewDelegation(testOther).Bytes())

	res := env.call(t, testTarget, 100000)
	if res.Status != StatusHalt || res.Halt != HaltInvalidOpcode {
		t.Fatalf("chained delegation executed: %v/%v", res.Status, res.Halt)
	}
}

func TestDelegationToPrecompileRunsNothing(t *testing.T) {
	var frames []*CallFrame
	insp := &frameRecorder{enter: func(f *CallFrame) { cp := *f; frames = append(frames, &cp) }}
	env := newTestEnv(Prague, insp)
	env.db.SetAccount(testTarget, nil, 1, types.NewDelegation(P256VerifyAddress).Bytes())

	res, err := env.evm.Call(testCaller, testTarget, mustHex(t, p256Valid), 100000, new(uint256.Int))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Succeeded() || len(res.Output) != 0 || res.GasLeft != 100000 {
		t.Fatalf("result = %+v", res)
	}
	if len(frames) != 1 || !frames[0].Delegated || frames[0].CodeAddress != P256VerifyAddress {
		t.Fatalf("frames = %+v", frames)
	}
}

func TestCallPrecompile(t *testing.T) {
	env := newTestEnv(Cancun, nil)
	res, err := env.evm.Call(testCaller, P256VerifyAddress, mustHex(t, p256Valid), 3450, new(uint256.Int))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Succeeded() || !bytes.Equal(res.Output, successWord) || res.GasLeft != 0 {
		t.Fatalf("result = %+v", res)
	}

	res, _ = env.evm.Call(testCaller, P256VerifyAddress, mustHex(t, p256Valid), 2500, new(uint256.Int))
	if res.Status != StatusHalt || res.Halt != HaltPrecompileOutOfGas || res.GasLeft != 0 {
		t.Fatalf("oog result = %+v", res)
	}
}

func TestCreate(t *testing.T) {
	env := newTestEnv(Cancun, nil)
	// Returns a single zero byte as runtime code.
	initCode := []byte{byte(PUSH1), 1, byte(PUSH1), 0, byte(RETURN)}
	res, err := env.evm.Create(testCaller, initCode, 100000, uint256.NewInt(3))
	if err != nil {
		t.Fatal(err)
	}
	want := types.Address(gethcrypto.CreateAddress(common.Address(testCaller), 0))
	if !res.Succeeded() || res.CreatedAddress == nil || *res.CreatedAddress != want {
		t.Fatalf("result = %+v", res)
	}
	if got := env.journal.GetNonce(testCaller); got != 1 {
		t.Fatalf("caller nonce = %d, want 1", got)
	}
	if got := env.journal.GetCode(want); !bytes.Equal(got, []byte{0}) {
		t.Fatalf("deployed code = %x", got)
	}
	if got := env.journal.GetNonce(want); got != 1 {
		t.Fatalf("contract nonce = %d, want 1", got)
	}
	if got := env.journal.GetBalance(want).Uint64(); got != 3 {
		t.Fatalf("endowment = %d", got)
	}
	if !env.journal.CreatedInTx(want) {
		t.Fatal("created account not flagged")
	}
}

func TestCreate2Address(t *testing.T) {
	env := newTestEnv(Cancun, nil)
	initCode := []byte{byte(STOP)}
	salt := uint256.NewInt(99)
	res, err := env.evm.Create2(testCaller, initCode, 100000, nil, salt)
	if err != nil {
		t.Fatal(err)
	}
	want := types.Address(gethcrypto.CreateAddress2(common.Address(testCaller), salt.Bytes32(), gethcrypto.Keccak256(initCode)))
	if res.CreatedAddress == nil || *res.CreatedAddress != want {
		t.Fatalf("created at %v, want %v", res.CreatedAddress, want)
	}
	// The same salt and code collide.
	res, _ = env.evm.Create2(testCaller, initCode, 100000, nil, salt)
	if res.Status == StatusSuccess {
		t.Fatal("second CREATE2 succeeded")
	}
}

func TestCreateRejectsEFPrefix(t *testing.T) {
	initCode := []byte{
		byte(PUSH1), 0xEF, byte(PUSH1), 0, byte(MSTORE8),
		byte(PUSH1), 1, byte(PUSH1), 0, byte(RETURN),
	}
	env := newTestEnv(London, nil)
	res, _ := env.evm.Create(testCaller, initCode, 100000, nil)
	if res.Status != StatusHalt || res.Halt != HaltCreateStartsWithEF {
		t.Fatalf("london result = %v/%v", res.Status, res.Halt)
	}
	if env.journal.GetNonce(testCaller) != 1 {
		t.Fatal("failed create must still bump the nonce")
	}

	env = newTestEnv(Berlin, nil)
	res, _ = env.evm.Create(testCaller, initCode, 100000, nil)
	if !res.Succeeded() {
		t.Fatalf("berlin result = %v/%v", res.Status, res.Halt)
	}
}

func TestSelfDestructCancun(t *testing.T) {
	code := append([]byte{byte(PUSH20)}, testOther[:]...)
	code = append(code, byte(SELFDESTRUCT))

	env := newTestEnv(Cancun, nil)
	env.db.SetAccount(testTarget, uint256.NewInt(50), 1, code)
	res := env.call(t, testTarget, 100000)
	if !res.Succeeded() || res.Success != SuccessSelfDestruct {
		t.Fatalf("result = %+v", res)
	}
	if env.journal.HasSelfDestructed(testTarget) {
		t.Fatal("pre-existing contract destroyed under EIP-6780")
	}
	if env.journal.GetBalance(testOther).Uint64() != 50 {
		t.Fatal("balance not moved")
	}

	env = newTestEnv(Shanghai, nil)
	env.db.SetAccount(testTarget, uint256.NewInt(50), 1, code)
	env.call(t, testTarget, 100000)
	if !env.journal.HasSelfDestructed(testTarget) {
		t.Fatal("shanghai selfdestruct did not destroy")
	}
}

type frameRecorder struct {
	NoopInspector
	enter func(*CallFrame)
	exit  func(*CallFrame, *FrameResult)
}

func (r *frameRecorder) CallEnter(f *CallFrame) {
	if r.enter != nil {
		r.enter(f)
	}
}

func (r *frameRecorder) CallExit(f *CallFrame, res *FrameResult) {
	if r.exit != nil {
		r.exit(f, res)
	}
}

type scribbler struct {
	NoopInspector
}

// Step clobbers everything it is handed; results must not change.
func (scribbler) Step(s *StepContext) {
	s.PC, s.Gas, s.Cost = 0, 0, 0
}

func TestInspectorDoesNotChangeResult(t *testing.T) {
	code := []byte{byte(PUSH1), 32, byte(PUSH1), 0, byte(PUSH1), 0, byte(PUSH1), 0, byte(PUSH1), 0, byte(PUSH20)}
	code = append(code, testOther[:]...)
	code = append(code, byte(GAS), byte(CALL), byte(POP),
		byte(PUSH1), 2, byte(PUSH1), 0, byte(SSTORE),
		byte(PUSH1), 32, byte(PUSH1), 0, byte(RETURN))

	run := func(insp Inspector) *FrameResult {
		env := newTestEnv(Cancun, insp)
		env.deploy(testOther, returnWord(9))
		env.deploy(testTarget, code)
		return env.call(t, testTarget, 300000)
	}
	plain := run(nil)
	logger := NewStructLogger(StructLoggerConfig{EnableMemory: true})
	for _, insp := range []Inspector{logger, scribbler{}, MultiInspector{logger, scribbler{}}} {
		got := run(insp)
		if got.Status != plain.Status || got.GasLeft != plain.GasLeft || !bytes.Equal(got.Output, plain.Output) {
			t.Fatalf("inspected %+v, plain %+v", got, plain)
		}
	}
}

type brokenStorage struct{ *state.MemoryDB }

var errStorageRead = errors.New("storage read failed")

func (brokenStorage) Storage(types.Address, types.Hash) (types.Hash, error) {
	return types.Hash{}, errStorageRead
}

func TestStateErrorClosesFrames(t *testing.T) {
	db := state.NewMemoryDB()
	db.SetAccount(testCaller, uint256.NewInt(1_000_000), 0, nil)
	db.SetAccount(testOther, nil, 1, []byte{byte(PUSH1), 0, byte(SLOAD), byte(STOP)})
	call := []byte{byte(PUSH1), 0, byte(PUSH1), 0, byte(PUSH1), 0, byte(PUSH1), 0, byte(PUSH1), 0, byte(PUSH20)}
	call = append(call, testOther[:]...)
	call = append(call, byte(GAS), byte(CALL), byte(STOP))
	db.SetAccount(testTarget, nil, 1, call)

	var entered, exited []types.Address
	rec := &frameRecorder{
		enter: func(f *CallFrame) { entered = append(entered, f.Address) },
		exit: func(f *CallFrame, res *FrameResult) {
			if res.Halt != HaltFatalExternalError {
				t.Errorf("exit %s: halt = %v", f.Address.Hex(), res.Halt)
			}
			exited = append(exited, f.Address)
		},
	}
	j := state.NewJournal(brokenStorage{db})
	j.BeginTx()
	evm := NewEVM(
		BlockContext{Number: 100, GasLimit: 30_000_000, BaseFee: uint256.NewInt(7)},
		TxContext{Origin: testCaller, GasPrice: uint256.NewInt(10)},
		j,
		Config{ChainID: 1, Spec: Cancun, Inspector: rec},
	)
	_, err := evm.Call(testCaller, testTarget, nil, 100000, new(uint256.Int))
	if !errors.Is(err, errStorageRead) {
		t.Fatalf("err = %v, want %v", err, errStorageRead)
	}
	if len(entered) != 2 || len(exited) != 2 {
		t.Fatalf("entered %d frames, exited %d", len(entered), len(exited))
	}
	if exited[0] != testOther || exited[1] != testTarget {
		t.Fatalf("exit order = %v", exited)
	}
}

func TestCallDepthLimit(t *testing.T) {
	env := newTestEnv(Cancun, nil)
	env.evm.depth = CallDepthLimit + 1
	res := env.call(t, testTarget, 1000)
	if res.Halt != HaltCallTooDeep || res.GasLeft != 1000 {
		t.Fatalf("result = %+v", res)
	}
}
