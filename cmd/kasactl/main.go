// Command kasactl is the operator tool for the ledger: it bootstraps the
// first administrator and runs reconciliation from cron or a shell.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"wykonczymy/internal/logger"
)

var commands = []subcommands.Command{
	&bootstrapAdminCmd{},
	&reconcileCmd{},
	&verifyCmd{},
	&reportsCmd{},
}

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	for _, c := range commands {
		commander.Register(c, "")
	}

	flag.Parse()
	status := commander.Execute(context.Background())
	logger.Sync()
	os.Exit(int(status))
}
