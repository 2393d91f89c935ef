package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docwright/internal/build"
	"git.home.luguber.info/inful/docwright/internal/config"
	"git.home.luguber.info/inful/docwright/internal/diag"
	"git.home.luguber.info/inful/docwright/internal/errors"
	"git.home.luguber.info/inful/docwright/internal/extension"
	"git.home.luguber.info/inful/docwright/internal/graph"
	"git.home.luguber.info/inful/docwright/internal/source"
	"git.home.luguber.info/inful/docwright/internal/writer"
)

// Global carries state shared by subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"docwright.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build BuildCmd `cmd:"" help:"Build documentation output from the source corpus"`
	Watch WatchCmd `cmd:"" help:"Watch the source corpus and rebuild on changes"`
}

// AfterApply runs after flag parsing; setup env and logging once.
func (c *CLI) AfterApply() error {
	config.LoadEnv()
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// buildRuntime is the assembled collaborator set behind one or more build
// invocations. Close releases the graph store.
type buildRuntime struct {
	orch  *build.Orchestrator
	store *graph.SQLiteStore
}

func (r *buildRuntime) Close() error { return r.store.Close() }

func newRuntime(cfg *config.Config, color bool) (*buildRuntime, error) {
	sink := diag.New(os.Stdout, os.Stderr).
		WithVerbosity(cfg.Verbosity).
		WithSuppressRules(cfg.SuppressWarnings).
		WithWarningIsError(cfg.WarningIsError).
		WithColor(color).
		WithSourceSuffix(cfg.SourceSuffix)

	store, err := graph.NewSQLiteStore(cfg.GraphPath, cfg.SourceDir, cfg.SourceSuffix, graph.DocID(cfg.RootDocument))
	if err != nil {
		return nil, err
	}

	w, err := selectWriter(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &buildRuntime{
		orch:  build.New(cfg, store, w, sink),
		store: store,
	}, nil
}

func selectWriter(cfg *config.Config) (writer.Writer, error) {
	revision := source.HeadRevision(cfg.SourceDir)
	switch cfg.Builder {
	case "html":
		return writer.NewHTMLWriter(cfg.OutputDir, revision).
			WithImageSelector(extension.NewPreferredFormatSelector(), cfg.SourceDir), nil
	case "text":
		return writer.NewTextWriter(cfg.OutputDir), nil
	default:
		return nil, errors.New(errors.CategoryConfig, errors.SeverityFatal,
			fmt.Sprintf("unknown builder %q (want html or text)", cfg.Builder))
	}
}
