package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/shipway/shipway/internal/printer"
	"github.com/shipway/shipway/internal/storage/sqlite"
)

type HistoryCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	runID  string
	format string
}

// NewHistoryCommand returns the history command.
func NewHistoryCommand(rootCmd *RootCommand, app *kingpin.Application) *HistoryCommand {
	c := &HistoryCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("history", "Show past distribution runs.")
	c.Cmd.Arg("run-id", "Show a single run in detail.").StringVar(&c.runID)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c HistoryCommand) Name() string { return c.Cmd.FullCommand() }

func (c HistoryCommand) Run(ctx context.Context) error {
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if c.runID != "" {
		run, err := repo.GetRun(ctx, c.runID)
		if err != nil {
			return fmt.Errorf("could not get run: %w", err)
		}
		if err := p.PrintRun(*run); err != nil {
			return fmt.Errorf("could not print run: %w", err)
		}
		return nil
	}

	runs, err := repo.ListRuns(ctx)
	if err != nil {
		return fmt.Errorf("could not list runs: %w", err)
	}

	if len(runs) == 0 {
		return p.PrintMessage("No runs recorded yet.")
	}

	if err := p.PrintRunList(runs); err != nil {
		return fmt.Errorf("could not print runs: %w", err)
	}

	return nil
}
