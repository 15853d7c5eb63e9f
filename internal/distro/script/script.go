// Package script implements the user-script distro: a configured executable
// is invoked per artifact (or once per run) with the artifact metadata passed
// through the environment.
package script

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/shipway/shipway/internal/distro"
	"github.com/shipway/shipway/internal/log"
	"github.com/shipway/shipway/internal/model"
	"github.com/shipway/shipway/internal/proc"
	"github.com/shipway/shipway/internal/progress"
	"github.com/shipway/shipway/internal/utils/env"
)

// DistroConfig is the configuration for the script distro.
type DistroConfig struct {
	Name            string
	Config          model.ScriptDistroConfig
	ContinueOnError bool
	Runner          *proc.Runner
	Logger          log.Logger
}

func (c *DistroConfig) defaults() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Runner == nil {
		return fmt.Errorf("process runner is required")
	}
	if c.Config.Path == "" {
		return fmt.Errorf("script path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"distro": c.Name, "kind": "script"})
	return nil
}

// Distro runs a user hook script through the process runner.
type Distro struct {
	name            string
	config          model.ScriptDistroConfig
	continueOnError bool
	runner          *proc.Runner
	logger          log.Logger
}

// NewDistro creates a new script distro.
func NewDistro(cfg DistroConfig) (*Distro, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Distro{
		name:            cfg.Name,
		config:          cfg.Config,
		continueOnError: cfg.ContinueOnError,
		runner:          cfg.Runner,
		logger:          cfg.Logger,
	}, nil
}

// Name satisfies the Distro interface.
func (d *Distro) Name() string { return d.name }

// Validate satisfies the Distro interface.
func (d *Distro) Validate(ctx context.Context) error {
	info, err := os.Stat(d.config.Path)
	if err != nil {
		return fmt.Errorf("script %q: %w", d.config.Path, model.ErrNotFound)
	}
	if info.IsDir() {
		return fmt.Errorf("script %q is a directory: %w", d.config.Path, model.ErrNotValid)
	}
	return nil
}

// Check satisfies the Distro interface.
func (d *Distro) Check(ctx context.Context) []model.CheckResult {
	result := model.CheckResult{ID: "script_path", Status: model.CheckStatusOK, Message: d.config.Path}
	if err := d.Validate(ctx); err != nil {
		result.Status = model.CheckStatusError
		result.Message = err.Error()
	}
	return []model.CheckResult{result}
}

// Run satisfies the Distro interface.
func (d *Distro) Run(ctx context.Context, task *progress.Task, artifacts []model.BuildArtifact) error {
	if d.config.OncePerRun {
		task.Report(0, 1, fmt.Sprintf("Running %s", d.config.Path))
		if err := d.invoke(ctx, task, d.batchEnv(artifacts), nil); err != nil {
			return err
		}
		task.Report(1, 1, "")
		return nil
	}

	total := len(artifacts)
	return distro.EachArtifact(task, artifacts, d.continueOnError, func(i int, a model.BuildArtifact) error {
		if err := a.Validate(); err != nil {
			return err
		}

		scriptEnv := d.artifactEnv(a)

		// An optional probe invocation decides whether the artifact still
		// needs processing. Its failure is expected and stays silent.
		if len(d.config.ProbeArgs) > 0 {
			if _, err := d.runner.Execute(ctx, proc.Execution{
				Path:        d.config.Path,
				Args:        d.config.ProbeArgs,
				Env:         scriptEnv,
				SilentError: true,
			}); err == nil {
				task.Report(i+1, total, fmt.Sprintf("Skipping %s, already processed", a))
				return nil
			}
		}

		task.Report(i, total, fmt.Sprintf("Running %s for %s", d.config.Path, a))
		if err := d.invoke(ctx, task, scriptEnv, &a); err != nil {
			return fmt.Errorf("artifact %s: %w", a, err)
		}

		task.Report(i+1, total, "")
		return nil
	})
}

func (d *Distro) invoke(ctx context.Context, task *progress.Task, scriptEnv map[string]string, a *model.BuildArtifact) error {
	_, err := d.runner.Execute(ctx, proc.Execution{
		Path:     d.config.Path,
		Args:     d.config.Args,
		Env:      scriptEnv,
		OnOutput: func(line string) { task.Log(line) },
		OnError:  func(line string) { task.Log(line) },
	})
	if err != nil {
		return err
	}

	if a != nil {
		d.logger.Infof("Script %s finished for %s", d.config.Path, *a)
	} else {
		d.logger.Infof("Script %s finished", d.config.Path)
	}
	return nil
}

func (d *Distro) artifactEnv(a model.BuildArtifact) map[string]string {
	return env.MergeMaps(d.config.Env, map[string]string{
		"SHIPWAY_DISTRO":     d.name,
		"SHIPWAY_PLATFORM":   string(a.Platform),
		"SHIPWAY_BUILD_PATH": a.Path,
		"SHIPWAY_PROFILE":    a.Profile,
	})
}

func (d *Distro) batchEnv(artifacts []model.BuildArtifact) map[string]string {
	return env.MergeMaps(d.config.Env, map[string]string{
		"SHIPWAY_DISTRO":         d.name,
		"SHIPWAY_ARTIFACT_COUNT": strconv.Itoa(len(artifacts)),
	})
}
