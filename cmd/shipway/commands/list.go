package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/shipway/shipway/internal/printer"
)

type ListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewListCommand returns the list command.
func NewListCommand(rootCmd *RootCommand, app *kingpin.Application) *ListCommand {
	c := &ListCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("list", "List the project's artifacts and distros.")
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c ListCommand) Name() string { return c.Cmd.FullCommand() }

func (c ListCommand) Run(ctx context.Context) error {
	project, err := loadProject(ctx, c.rootCmd)
	if err != nil {
		return err
	}

	var p printer.Printer
	switch c.format {
	case "json":
		p = printer.NewJSONPrinter(c.rootCmd.Stdout)
	default: // table
		p = printer.NewTablePrinter(c.rootCmd.Stdout)
	}

	if err := p.PrintArtifacts(project.Artifacts); err != nil {
		return fmt.Errorf("could not print artifacts: %w", err)
	}

	fmt.Fprintln(c.rootCmd.Stdout)

	if err := p.PrintDistros(project.Distros); err != nil {
		return fmt.Errorf("could not print distros: %w", err)
	}

	return nil
}
