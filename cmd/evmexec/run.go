package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/eth2030/evmcore/core"
	"github.com/eth2030/evmcore/core/rawdb"
	"github.com/eth2030/evmcore/core/state"
	"github.com/eth2030/evmcore/core/types"
	"github.com/eth2030/evmcore/core/vm"
	"github.com/eth2030/evmcore/log"
	"github.com/eth2030/evmcore/rollup"
)

var cmdLog = log.Module("evmexec")

const cacheSize = 4096

var errNoScenarioArg = errors.New("expected one scenario file")

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "run a scenario and print one JSON result per execution",
	ArgsUsage: "<scenario.toml>",
	Flags:     []cli.Flag{traceFlag, traceLimitFlag},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return errNoScenarioArg
		}
		sc, err := LoadScenario(c.Args().First())
		if err != nil {
			return err
		}
		var insp vm.Inspector
		if c.Bool(traceFlag.Name) {
			insp = vm.NewStructLogger(vm.StructLoggerConfig{
				Limit:  c.Int(traceLimitFlag.Name),
				Stream: c.App.ErrWriter,
			})
		}
		return runScenario(sc, insp, c.App.Writer)
	},
}

var validateCommand = &cli.Command{
	Name:      "validate",
	Usage:     "decode a scenario without running it",
	ArgsUsage: "<scenario.toml>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return errNoScenarioArg
		}
		sc, err := LoadScenario(c.Args().First())
		if err != nil {
			return err
		}
		if _, _, err := sc.Config(); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "ok: %d system calls, %d transactions\n", len(sc.SystemCalls), len(sc.Txs))
		return nil
	},
}

// Output is the JSON form of one execution.
type Output struct {
	Kind    string         `json:"kind"`
	Index   int            `json:"index"`
	Status  string         `json:"status,omitempty"`
	Halt    string         `json:"halt,omitempty"`
	GasUsed uint64         `json:"gasUsed"`
	Refund  uint64         `json:"gasRefunded"`
	Output  string         `json:"output,omitempty"`
	Created *types.Address `json:"created,omitempty"`
	Logs    int            `json:"logs"`
	Error   string         `json:"error,omitempty"`
}

func newOutput(kind string, i int, res *core.ExecutionResult, err error) Output {
	out := Output{Kind: kind, Index: i}
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Status = res.Status.String()
	if res.Status == vm.StatusHalt {
		out.Halt = res.Halt.String()
	}
	out.GasUsed = res.GasUsed
	out.Refund = res.GasRefunded
	if len(res.Output) > 0 {
		out.Output = fmt.Sprintf("%#x", res.Output)
	}
	out.Created = res.CreatedAddress
	out.Logs = len(res.Logs)
	return out
}

// openBackend returns the scenario backend seeded with the pre-state,
// and its close function.
func openBackend(sc *Scenario) (state.Database, func() error, error) {
	if sc.DataDir == "" {
		mem := state.NewMemoryDB()
		pre, err := sc.PreState(nil)
		if err != nil {
			return nil, nil, err
		}
		return mem, func() error { return nil }, mem.Commit(pre)
	}

	kv, err := rawdb.NewBoltDB(filepath.Join(sc.DataDir, "state.db"))
	if err != nil {
		return nil, nil, err
	}
	db := state.NewKVDatabase(kv)
	pre, err := sc.PreState(db)
	if err == nil {
		err = db.Commit(pre)
	}
	if err != nil {
		kv.Close()
		return nil, nil, err
	}
	return state.NewCachingDB(db, cacheSize), kv.Close, nil
}

func runScenario(sc *Scenario, insp vm.Inspector, w io.Writer) error {
	cfg, rollupSpec, err := sc.Config()
	if err != nil {
		return err
	}
	block, err := sc.BlockEnv()
	if err != nil {
		return err
	}
	db, closeDB, err := openBackend(sc)
	if err != nil {
		return err
	}
	defer closeDB()

	var evm *core.Evm
	if rollupSpec != nil {
		evm = rollup.NewEvm(db, *rollupSpec, cfg)
	} else {
		evm = core.NewEvm(db, cfg)
	}
	evm.SetBlock(block)
	evm.SetInspector(insp)
	cmdLog.Info("Running scenario", "spec", cfg.Spec, "rollup", sc.Rollup,
		"block", block.Number, "systemCalls", len(sc.SystemCalls), "txs", len(sc.Txs))

	enc := json.NewEncoder(w)
	emit := func(out Output) error { return enc.Encode(out) }

	for i, call := range sc.SystemCalls {
		caller := core.SystemAddress
		if call.Caller != "" {
			caller = types.HexToAddress(call.Caller)
		}
		res, err := evm.SystemCallOne(caller, types.HexToAddress(call.To), code(call.Data))
		if err != nil {
			evm.DiscardTx()
		}
		if err := emit(newOutput("system", i, res, err)); err != nil {
			return err
		}
	}
	for i := range sc.Txs {
		tx, err := sc.Txs[i].Transaction(cfg.ChainID, rollupSpec != nil)
		if err != nil {
			return fmt.Errorf("tx %d: %w", i, err)
		}
		res, err := evm.InspectOneTx(tx)
		if err != nil {
			cmdLog.Warn("Transaction rejected", "index", i, "err", err)
			evm.DiscardTx()
		}
		if err := emit(newOutput("tx", i, res, err)); err != nil {
			return err
		}
	}

	st := evm.Finalize()
	if !sc.Commit {
		cmdLog.Info("Scenario done", "changed", len(st))
		return nil
	}
	if err := evm.Commit(st); err != nil {
		return err
	}
	cmdLog.Info("Scenario committed", "changed", len(st))
	return nil
}
