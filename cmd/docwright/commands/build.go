package commands

import (
	"context"

	"git.home.luguber.info/inful/docwright/internal/config"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Docs []string `arg:"" optional:"" help:"Specific documents to build (docnames or source paths)"`

	All            bool `short:"a" help:"Build all documents, not just outdated ones"`
	Jobs           int  `short:"j" help:"Worker slots including the coordinator (overrides config)"`
	Color          bool `help:"Colorize console output"`
	WarningIsError bool `short:"W" name:"warning-is-error" help:"Treat warnings as errors"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	b.applyOverrides(cfg, root)

	rt, err := newRuntime(cfg, b.Color)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := context.Background()
	switch {
	case len(b.Docs) > 0:
		return rt.orch.BuildSpecific(ctx, b.Docs)
	case b.All:
		return rt.orch.BuildAll(ctx)
	default:
		return rt.orch.BuildUpdate(ctx)
	}
}

func (b *BuildCmd) applyOverrides(cfg *config.Config, root *CLI) {
	if b.Jobs > 0 {
		cfg.Parallelism = b.Jobs
	}
	if b.WarningIsError {
		cfg.WarningIsError = true
	}
	if root.Verbose && cfg.Verbosity == 0 {
		cfg.Verbosity = 1
	}
}
