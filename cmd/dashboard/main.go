// Command dashboard serves and displays a live-updating stock portfolio.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&serveCmd{}, "")
	commander.Register(&watchCmd{}, "")
	commander.Register(&priceCmd{}, "trading")
	commander.Register(&buyCmd{}, "trading")
	commander.Register(&sellCmd{}, "trading")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
