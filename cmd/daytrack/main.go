package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/daytrack/cmd/daytrack/commands"
	"git.home.luguber.info/inful/daytrack/internal/foundation/errors"
	"git.home.luguber.info/inful/daytrack/internal/version"
)

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("daytrack"),
		kong.Description("Daily health metric tracking with recurring defaults."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	if err := ctx.Run(&commands.Global{}, cli); err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
