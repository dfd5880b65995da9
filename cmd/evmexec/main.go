// Command evmexec runs the transactions and system calls of a TOML
// scenario through the execution core and prints their results as JSON.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/eth2030/evmcore/log"
)

var (
	version = "v0.1.0"
	commit  = "unknown"
)

var (
	verbosityFlag = &cli.StringFlag{
		Name:  "verbosity",
		Usage: "log level (trace, debug, info, warn, error)",
		Value: "info",
	}
	logFormatFlag = &cli.StringFlag{
		Name:  "log.format",
		Usage: "log format (terminal, logfmt, json)",
		Value: "terminal",
	}
	traceFlag = &cli.BoolFlag{
		Name:  "trace",
		Usage: "stream opcode steps as JSON lines to stderr",
	}
	traceLimitFlag = &cli.IntFlag{
		Name:  "trace.limit",
		Usage: "maximum number of recorded steps per transaction",
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "evmexec",
		Usage:   "execute EVM transactions from a TOML scenario",
		Version: fmt.Sprintf("%s (commit %s)", version, commit),
		Flags:   []cli.Flag{verbosityFlag, logFormatFlag},
		Before:  setupLogging,
		Commands: []*cli.Command{
			runCommand,
			validateCommand,
		},
	}
}

func setupLogging(c *cli.Context) error {
	level, err := log.ParseLevel(c.String(verbosityFlag.Name))
	if err != nil {
		return err
	}
	return log.Setup(log.Config{
		Format: c.String(logFormatFlag.Name),
		Level:  level,
		Output: c.App.ErrWriter,
	})
}
