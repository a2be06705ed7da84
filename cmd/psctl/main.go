/*
psctl - operator command line for the profit-sharing ledger

USAGE:
  psctl [-env .env] <command> [flags] [args]

COMMANDS:
  balance        vesting-aware balance of a badge or beneficiary slice
  disburse       split a badge's funds across its beneficiaries
  vesting        look up a vesting percent and the new plan year
  bump-vesting   invalidate the vesting cache
  seed           reset storage and load a demo scenario

Storage and cache settings come from the same environment keys as the
server (see config/config.go).
*/
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

var envFile = flag.String("env", ".env", "dotenv file")

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	for _, c := range commands {
		commander.Register(c, "ledger")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
