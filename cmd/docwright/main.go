package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docwright/cmd/docwright/commands"
	"git.home.luguber.info/inful/docwright/internal/errors"
)

// version is overridden at link time.
var version = "dev"

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("docwright"),
		kong.Description("Multi-format document compiler"),
		kong.Vars{"version": version},
		kong.UsageOnError(),
	)

	if err := ctx.Run(&commands.Global{Logger: slog.Default()}); err != nil {
		fmt.Fprintln(os.Stderr, errors.FormatForCLI(err))
		os.Exit(errors.ExitCodeFor(err))
	}
}
