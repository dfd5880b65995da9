package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/holiman/uint256"

	"github.com/eth2030/evmcore/core"
	"github.com/eth2030/evmcore/core/state"
	"github.com/eth2030/evmcore/core/types"
	"github.com/eth2030/evmcore/core/vm"
	"github.com/eth2030/evmcore/rollup"
)

// Scenario errors.
var (
	ErrNoScenario    = errors.New("scenario is empty")
	ErrInvalidNumber = errors.New("invalid number")
)

// Scenario is a TOML file describing a pre-state, a block and the
// executions to run against it. System calls run before transactions.
type Scenario struct {
	ChainID uint64    `toml:"chain_id"`
	Spec    vm.SpecID `toml:"spec"`
	// Rollup selects the rollup pipeline under the named fork. Spec is
	// then derived from it.
	Rollup string `toml:"rollup"`
	// DataDir holds a bbolt backend. Empty runs in memory.
	DataDir string `toml:"datadir"`
	Commit  bool   `toml:"commit"`

	Block       BlockSpec      `toml:"block"`
	Accounts    []AccountSpec  `toml:"account"`
	SystemCalls []SystemSpec   `toml:"system_call"`
	Txs         []TxSpec       `toml:"tx"`
	Checks      ConfigSwitches `toml:"checks"`
}

// ConfigSwitches disables validation steps.
type ConfigSwitches struct {
	DisableNonce   bool `toml:"disable_nonce"`
	DisableBalance bool `toml:"disable_balance"`
	DisableBaseFee bool `toml:"disable_base_fee"`
}

type BlockSpec struct {
	Number      uint64 `toml:"number"`
	Timestamp   uint64 `toml:"timestamp"`
	Coinbase    string `toml:"coinbase"`
	GasLimit    uint64 `toml:"gas_limit"`
	BaseFee     string `toml:"base_fee"`
	BlobBaseFee string `toml:"blob_base_fee"`
}

type AccountSpec struct {
	Address string            `toml:"address"`
	Balance string            `toml:"balance"`
	Nonce   uint64            `toml:"nonce"`
	Code    string            `toml:"code"`
	Storage map[string]string `toml:"storage"`
}

type SystemSpec struct {
	Caller string `toml:"caller"`
	To     string `toml:"to"`
	Data   string `toml:"data"`
}

type TxSpec struct {
	Type     uint8  `toml:"type"`
	From     string `toml:"from"`
	To       string `toml:"to"`
	Nonce    uint64 `toml:"nonce"`
	Gas      uint64 `toml:"gas"`
	GasPrice string `toml:"gas_price"`
	Tip      string `toml:"tip"`
	Value    string `toml:"value"`
	Data     string `toml:"data"`

	// Rollup fields.
	Enveloped string `toml:"enveloped"`
	Mint      string `toml:"mint"`
	Source    string `toml:"source"`
	SystemTx  bool   `toml:"system_tx"`
}

// LoadScenario decodes a scenario file. Unknown keys are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(string(data))
}

// ParseScenario decodes a scenario from TOML text.
func ParseScenario(text string) (*Scenario, error) {
	sc := &Scenario{ChainID: 1, Spec: vm.Prague, Commit: true}
	md, err := toml.Decode(text, sc)
	if err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("decode scenario: unknown keys %v", undec)
	}
	if len(sc.Txs) == 0 && len(sc.SystemCalls) == 0 {
		return nil, ErrNoScenario
	}
	return sc, nil
}

// Config returns the execution config of the scenario.
func (sc *Scenario) Config() (*core.Config, *rollup.SpecID, error) {
	cfg := core.DefaultConfig()
	cfg.ChainID = sc.ChainID
	cfg.Spec = sc.Spec
	cfg.DisableNonceCheck = sc.Checks.DisableNonce
	cfg.DisableBalanceCheck = sc.Checks.DisableBalance
	cfg.DisableBaseFee = sc.Checks.DisableBaseFee
	if sc.Rollup == "" {
		return cfg, nil, nil
	}
	spec, err := rollup.ParseSpecID(sc.Rollup)
	if err != nil {
		return nil, nil, err
	}
	cfg.Spec = spec.EVMSpec()
	return cfg, &spec, nil
}

// BlockEnv converts the block section.
func (sc *Scenario) BlockEnv() (*types.BlockEnv, error) {
	b := types.NewBlockEnv()
	b.Number = sc.Block.Number
	b.Timestamp = sc.Block.Timestamp
	b.Coinbase = types.HexToAddress(sc.Block.Coinbase)
	if sc.Block.GasLimit != 0 {
		b.GasLimit = sc.Block.GasLimit
	}
	var err error
	if b.BaseFee, err = parseU256(sc.Block.BaseFee); err != nil {
		return nil, fmt.Errorf("base_fee: %w", err)
	}
	if sc.Block.BlobBaseFee != "" {
		if b.BlobBaseFee, err = parseU256(sc.Block.BlobBaseFee); err != nil {
			return nil, fmt.Errorf("blob_base_fee: %w", err)
		}
	}
	return b, nil
}

// PreState returns the scenario accounts as a committable State.
// Accounts already present in existing are left out, so a persistent
// backend is only seeded once.
func (sc *Scenario) PreState(existing state.Database) (state.State, error) {
	out := make(state.State)
	for _, a := range sc.Accounts {
		addr := types.HexToAddress(a.Address)
		if existing != nil {
			info, err := existing.Basic(addr)
			if err != nil {
				return nil, err
			}
			if info != nil {
				continue
			}
		}
		balance, err := parseU256(a.Balance)
		if err != nil {
			return nil, fmt.Errorf("account %s balance: %w", a.Address, err)
		}
		info := state.NewAccountInfo()
		info.Balance = balance
		info.Nonce = a.Nonce
		info.Code = code(a.Code)

		acct := &state.Account{
			Info:    info,
			Storage: make(map[types.Hash]*state.StorageSlot, len(a.Storage)),
			Status:  state.AccountTouched,
		}
		for k, v := range a.Storage {
			acct.Storage[types.HexToHash(k)] = &state.StorageSlot{Present: types.HexToHash(v)}
		}
		out[addr] = acct
	}
	return out, nil
}

// Transaction converts a tx section. Rollup transactions carry the
// enveloped bytes and deposit fields.
func (t *TxSpec) Transaction(chainID uint64, isRollup bool) (core.Tx, error) {
	tx := types.Transaction{
		Type:     types.TxType(t.Type),
		Caller:   types.HexToAddress(t.From),
		Nonce:    t.Nonce,
		GasLimit: t.Gas,
		Data:     code(t.Data),
	}
	if t.To != "" {
		to := types.HexToAddress(t.To)
		tx.To = &to
	}
	var err error
	if tx.GasPrice, err = parseU256(t.GasPrice); err != nil {
		return nil, fmt.Errorf("gas_price: %w", err)
	}
	if tx.Value, err = parseU256(t.Value); err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	if t.Tip != "" {
		if tx.GasTipCap, err = parseU256(t.Tip); err != nil {
			return nil, fmt.Errorf("tip: %w", err)
		}
	}
	if tx.Type != types.LegacyTxType {
		tx.ChainID = &chainID
	}
	if !isRollup {
		return &tx, nil
	}

	rtx := &rollup.Transaction{Transaction: tx, EnvelopedTx: code(t.Enveloped)}
	if rtx.IsDeposit() {
		rtx.ChainID = nil
		if rtx.Deposit.Mint, err = parseU256(t.Mint); err != nil {
			return nil, fmt.Errorf("mint: %w", err)
		}
		rtx.Deposit.SourceHash = types.HexToHash(t.Source)
		rtx.Deposit.IsSystemTx = t.SystemTx
	}
	return rtx, nil
}

// parseU256 accepts decimal or 0x-prefixed hex. Empty is zero.
func parseU256(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(uint256.Int), nil
	}
	var (
		v   *uint256.Int
		err error
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = uint256.FromHex(s)
	} else {
		v, err = uint256.FromDecimal(s)
	}
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidNumber, s, err)
	}
	return v, nil
}

func code(s string) []byte {
	if s == "" {
		return nil
	}
	return types.FromHex(s)
}
