package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/shipway/shipway/internal/app/run"
	"github.com/shipway/shipway/internal/distro"
	"github.com/shipway/shipway/internal/model"
	"github.com/shipway/shipway/internal/printer"
	"github.com/shipway/shipway/internal/proc"
	"github.com/shipway/shipway/internal/progress"
	"github.com/shipway/shipway/internal/storage/sqlite"
	"github.com/shipway/shipway/internal/utils/env"
)

type ShipCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	distroNames []string
	envSpecs    []string
}

// NewShipCommand returns the ship command.
func NewShipCommand(rootCmd *RootCommand, app *kingpin.Application) *ShipCommand {
	c := &ShipCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("ship", "Package and ship the project artifacts through the configured distros.")
	c.Cmd.Flag("distro", "Distro to run (defaults to all). Can be repeated.").Short('d').StringsVar(&c.distroNames)
	c.Cmd.Flag("env", "Environment variables for script distros (KEY=VALUE or KEY from current environment). Can be repeated.").Short('e').StringsVar(&c.envSpecs)

	return c
}

func (c ShipCommand) Name() string { return c.Cmd.FullCommand() }

func (c ShipCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	project, err := loadProject(ctx, c.rootCmd)
	if err != nil {
		return err
	}

	envOverrides, err := env.ParseSpecs(c.envSpecs)
	if err != nil {
		return fmt.Errorf("invalid --env value: %w", err)
	}

	// Select the distros to run.
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

	// Initialize process runner.
	runner, err := proc.NewRunner(proc.RunnerConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create process runner: %w", err)
	}

	// Initialize distros.
	distros := make([]distro.Distro, 0, len(distroCfgs))
	for _, cfg := range distroCfgs {
		if cfg.Script != nil && len(envOverrides) > 0 {
			cfg.Script.Env = env.MergeMaps(cfg.Script.Env, envOverrides)
		}

		d, err := newDistroFromConfig(cfg, runner, logger)
		if err != nil {
			return fmt.Errorf("could not create distro: %w", err)
		}
		distros = append(distros, d)
	}

	// Initialize storage (SQLite).
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	// Initialize progress over stdout.
	tracker, err := progress.NewTracker(progress.TrackerConfig{
		Reporter: textReporter{out: c.rootCmd.Stdout},
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("could not create progress tracker: %w", err)
	}

	// Create run service.
	svc, err := run.NewService(run.ServiceConfig{
		Repository: repo,
		Tracker:    tracker,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	// Execute the batch.
	runs, runErr := svc.Run(ctx, run.RunOptions{
		Distros:   distros,
		Artifacts: project.Artifacts,
	})

	// Print the run summary even when the batch failed halfway.
	if len(runs) > 0 {
		p := printer.NewTablePrinter(c.rootCmd.Stdout)
		fmt.Fprintln(c.rootCmd.Stdout)
		if err := p.PrintRunList(runs); err != nil {
			return fmt.Errorf("could not print runs: %w", err)
		}
	}

	if runErr != nil {
		return fmt.Errorf("could not ship artifacts: %w", runErr)
	}

	return nil
}
