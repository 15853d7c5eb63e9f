// Package zip implements the archive distro: every artifact is compressed
// into a zip file in the configured output directory.
package zip

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/shipway/shipway/internal/distro"
	"github.com/shipway/shipway/internal/log"
	"github.com/shipway/shipway/internal/model"
	"github.com/shipway/shipway/internal/proc"
	"github.com/shipway/shipway/internal/progress"
	"github.com/shipway/shipway/internal/utils/template"
)

const defaultNameTemplate = "{profile}-{platform}.zip"

// DistroConfig is the configuration for the zip distro.
type DistroConfig struct {
	Name            string
	Config          model.ZipDistroConfig
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
	if c.Config.NameTemplate == "" {
		c.Config.NameTemplate = defaultNameTemplate
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"distro": c.Name, "kind": "zip"})
	return nil
}

// Distro archives artifacts with the platform archiver: ditto on macOS (it
// preserves resource forks and code signatures), zip everywhere else.
type Distro struct {
	name            string
	config          model.ZipDistroConfig
	continueOnError bool
	runner          *proc.Runner
	logger          log.Logger
}

// NewDistro creates a new zip distro.
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
	if _, err := template.Expand(d.config.NameTemplate, map[string]string{"platform": "p", "profile": "p"}); err != nil {
		return fmt.Errorf("invalid name template %q: %w", d.config.NameTemplate, model.ErrNotValid)
	}
	if _, err := proc.ResolveTool(archiverTool()); err != nil {
		return err
	}
	return nil
}

// Check satisfies the Distro interface.
func (d *Distro) Check(ctx context.Context) []model.CheckResult {
	tool := archiverTool()
	result := model.CheckResult{ID: "zip_tool", Status: model.CheckStatusOK}

	path, err := proc.ResolveTool(tool)
	if err != nil {
		result.Status = model.CheckStatusError
		result.Message = fmt.Sprintf("archiver %q not found", tool)
	} else {
		result.Message = fmt.Sprintf("archiver: %s", path)
	}

	return []model.CheckResult{result}
}

// Run satisfies the Distro interface.
func (d *Distro) Run(ctx context.Context, task *progress.Task, artifacts []model.BuildArtifact) error {
	if err := os.MkdirAll(d.config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("could not create output dir: %w", err)
	}

	total := len(artifacts)
	return distro.EachArtifact(task, artifacts, d.continueOnError, func(i int, a model.BuildArtifact) error {
		task.Report(i, total, fmt.Sprintf("Archiving %s", a))

		child := task.StartChild(fmt.Sprintf("%s (%s)", d.name, a))
		defer child.Remove()

		if err := d.archiveOne(ctx, child, a); err != nil {
			return fmt.Errorf("artifact %s: %w", a, err)
		}

		task.Report(i+1, total, "")
		return nil
	})
}

// archiveOne builds the archive in a scoped temp directory and only moves it
// into the output directory once complete, so a failed or canceled run never
// leaves a partial archive behind.
func (d *Distro) archiveOne(ctx context.Context, task *progress.Task, a model.BuildArtifact) error {
	if err := a.Validate(); err != nil {
		return err
	}

	name, err := template.Expand(d.config.NameTemplate, map[string]string{
		"platform": string(a.Platform),
		"profile":  a.Profile,
	})
	if err != nil {
		return fmt.Errorf("name template: %w", err)
	}

	toolPath, err := proc.ResolveTool(archiverTool())
	if err != nil {
		return err
	}

	return distro.WithTempDir("shipway-zip-*", func(tmpDir string) error {
		tmpArchive := filepath.Join(tmpDir, name)

		task.Report(1, 2, fmt.Sprintf("Compressing into %s", name))
		execution := archiverExecution(toolPath, a.Path, tmpArchive)
		execution.OnOutput = func(line string) { task.Log(line) }
		execution.OnError = func(line string) { task.Log(line) }

		if _, err := d.runner.Execute(ctx, execution); err != nil {
			return err
		}

		task.Report(2, 2, "Moving archive into place")
		finalPath := filepath.Join(d.config.OutputDir, name)
		if err := os.Rename(tmpArchive, finalPath); err != nil {
			// Rename fails across filesystems, fall back to copy.
			if err := copyFile(tmpArchive, finalPath); err != nil {
				return fmt.Errorf("could not place archive: %w", err)
			}
		}

		d.logger.Infof("Archived %s -> %s", a, finalPath)
		return nil
	})
}

func archiverTool() string {
	if runtime.GOOS == "darwin" {
		return "ditto"
	}
	return "zip"
}

func archiverExecution(toolPath, srcPath, dstArchive string) proc.Execution {
	if runtime.GOOS == "darwin" {
		return proc.Execution{
			Path: toolPath,
			Args: []string{"-c", "-k", "--sequesterRsrc", "--keepParent", srcPath, dstArchive},
		}
	}

	// zip resolves paths relative to its working directory; run it from the
	// artifact's parent so archive entries keep short paths.
	return proc.Execution{
		Path: toolPath,
		Args: []string{"-r", "-y", dstArchive, filepath.Base(srcPath)},
		Dir:  filepath.Dir(srcPath),
	}
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
