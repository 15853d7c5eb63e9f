package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shipway/shipway/internal/distro"
	"github.com/shipway/shipway/internal/distro/script"
	"github.com/shipway/shipway/internal/distro/upload"
	"github.com/shipway/shipway/internal/distro/zip"
	"github.com/shipway/shipway/internal/log"
	"github.com/shipway/shipway/internal/model"
	"github.com/shipway/shipway/internal/proc"
	"github.com/shipway/shipway/internal/progress"
	storageio "github.com/shipway/shipway/internal/storage/io"
)

// loadProject reads and validates the project configuration file.
func loadProject(ctx context.Context, c *RootCommand) (model.Project, error) {
	dir, file := filepath.Split(c.ConfigPath)
	if dir == "" {
		dir = "."
	}

	repo := storageio.NewProjectYAMLRepository(os.DirFS(dir))
	project, err := repo.GetProject(ctx, file)
	if err != nil {
		return model.Project{}, fmt.Errorf("could not load project %q: %w", c.ConfigPath, err)
	}

	return project, nil
}

// newDistroFromConfig creates the distro implementation matching the
// configured engine section.
func newDistroFromConfig(cfg model.DistroConfig, runner *proc.Runner, logger log.Logger) (distro.Distro, error) {
	switch {
	case cfg.Zip != nil:
		return zip.NewDistro(zip.DistroConfig{
			Name:            cfg.Name,
			Config:          *cfg.Zip,
			ContinueOnError: cfg.ContinueOnError,
			Runner:          runner,
			Logger:          logger,
		})
	case cfg.Script != nil:
		return script.NewDistro(script.DistroConfig{
			Name:            cfg.Name,
			Config:          *cfg.Script,
			ContinueOnError: cfg.ContinueOnError,
			Runner:          runner,
			Logger:          logger,
		})
	case cfg.Upload != nil:
		return upload.NewDistro(upload.DistroConfig{
			Name:   cfg.Name,
			Config: *cfg.Upload,
			Runner: runner,
			Logger: logger,
		})
	default:
		return nil, fmt.Errorf("distro %q has no engine configured: %w", cfg.Name, model.ErrNotValid)
	}
}

// textReporter prints progress events as plain lines, one per event.
type textReporter struct {
	out io.Writer
}

func (r textReporter) Update(u progress.Update) {
	// Described updates already surface through Log.
	if u.Description != "" || u.Total <= 0 {
		return
	}
	fmt.Fprintf(r.out, "[%s] %d/%d\n", u.Name, u.Step, u.Total)
}

func (r textReporter) Log(taskName, line string) {
	fmt.Fprintf(r.out, "[%s] %s\n", taskName, line)
}
