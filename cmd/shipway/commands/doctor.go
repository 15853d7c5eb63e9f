package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/shipway/shipway/internal/model"
	"github.com/shipway/shipway/internal/printer"
	"github.com/shipway/shipway/internal/proc"
)

type DoctorCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	distroNames []string
}

// NewDoctorCommand returns the doctor command.
func NewDoctorCommand(rootCmd *RootCommand, app *kingpin.Application) *DoctorCommand {
	c := &DoctorCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("doctor", "Run preflight checks for the configured distros.")
	c.Cmd.Flag("distro", "Distro to check (defaults to all). Can be repeated.").Short('d').StringsVar(&c.distroNames)

	return c
}

func (c DoctorCommand) Name() string { return c.Cmd.FullCommand() }

func (c DoctorCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger
	out := c.rootCmd.Stdout

	project, err := loadProject(ctx, c.rootCmd)
	if err != nil {
		return err
	}

	distroCfgs := project.Distros
	if len(c.distroNames) > 0 {
		distroCfgs = make([]model.DistroConfig, 0, len(c.distroNames))
		for _, name := range c.distroNames {
			cfg, err := project.DistroByName(name)
			if err != nil {
				return err
			}
			distroCfgs = append(distroCfgs, *cfg)
		}
	}

	runner, err := proc.NewRunner(proc.RunnerConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create process runner: %w", err)
	}

	p := printer.NewTablePrinter(out)
	totalErrors := 0

	for _, cfg := range distroCfgs {
		d, err := newDistroFromConfig(cfg, runner, logger)
		if err != nil {
			return fmt.Errorf("could not create distro: %w", err)
		}

		fmt.Fprintf(out, "Checking distro %q...\n", d.Name())
		results := d.Check(ctx)
		if err := p.PrintChecks(results); err != nil {
			return fmt.Errorf("could not print checks: %w", err)
		}
		fmt.Fprintln(out)

		_, _, errs := model.CountByStatus(results)
		totalErrors += errs
	}

	if totalErrors > 0 {
		return fmt.Errorf("preflight checks failed with %d error(s)", totalErrors)
	}

	fmt.Fprintln(out, "All checks passed!")

	return nil
}
