// Command fundwise is a group-expense tracker: sign in, create shared
// funds, record split expenses, and view member balances.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/fundwise/fundwise/pkg/logging"
)

func main() {
	logging.Setup()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&registerCmd{}, "account")
	commander.Register(&loginCmd{}, "account")
	commander.Register(&logoutCmd{}, "account")
	commander.Register(&whoamiCmd{}, "account")

	commander.Register(&fundsCmd{}, "funds")
	commander.Register(&fundCreateCmd{}, "funds")
	commander.Register(&fundDeleteCmd{}, "funds")
	commander.Register(&inviteCmd{}, "funds")

	commander.Register(&txAddCmd{}, "transactions")
	commander.Register(&txListCmd{}, "transactions")
	commander.Register(&txDeleteCmd{}, "transactions")
	commander.Register(&balancesCmd{}, "transactions")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
