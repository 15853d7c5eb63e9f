// Package upload implements the generic upload distro: the contents of a
// local directory are shipped to a remote destination with the transfer tool
// matching the destination scheme.
package upload

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/shipway/shipway/internal/creds"
	"github.com/shipway/shipway/internal/log"
	"github.com/shipway/shipway/internal/model"
	"github.com/shipway/shipway/internal/proc"
	"github.com/shipway/shipway/internal/progress"
)

// DistroConfig is the configuration for the upload distro.
type DistroConfig struct {
	Name        string
	Config      model.UploadDistroConfig
	Runner      *proc.Runner
	Credentials creds.Store
	Logger      log.Logger
}

func (c *DistroConfig) defaults() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Runner == nil {
		return fmt.Errorf("process runner is required")
	}
	if c.Credentials == nil {
		c.Credentials = creds.EnvStore{}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"distro": c.Name, "kind": "upload"})
	return nil
}

// Distro uploads a directory via rsync, scp or curl depending on the
// destination scheme.
type Distro struct {
	name        string
	config      model.UploadDistroConfig
	runner      *proc.Runner
	credentials creds.Store
	logger      log.Logger
}

// NewDistro creates a new upload distro.
func NewDistro(cfg DistroConfig) (*Distro, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Distro{
		name:        cfg.Name,
		config:      cfg.Config,
		runner:      cfg.Runner,
		credentials: cfg.Credentials,
		logger:      cfg.Logger,
	}, nil
}

// Name satisfies the Distro interface.
func (d *Distro) Name() string { return d.name }

// Validate satisfies the Distro interface.
func (d *Distro) Validate(ctx context.Context) error {
	if _, err := os.Stat(d.config.SourceDir); err != nil {
		return fmt.Errorf("source dir %q: %w", d.config.SourceDir, model.ErrNotFound)
	}

	tool, err := d.transferTool()
	if err != nil {
		return err
	}
	if _, err := proc.ResolveTool(tool); err != nil {
		return err
	}

	// Fail before spawning anything when the credential is configured but
	// cannot be resolved.
	if d.config.CredentialService != "" {
		if _, err := d.credentials.Secret(d.config.CredentialService, d.config.CredentialAccount); err != nil {
			return err
		}
	}

	return nil
}

// Check satisfies the Distro interface.
func (d *Distro) Check(ctx context.Context) []model.CheckResult {
	var results []model.CheckResult

	tool, err := d.transferTool()
	if err != nil {
		return []model.CheckResult{{ID: "upload_scheme", Status: model.CheckStatusError, Message: err.Error()}}
	}

	toolResult := model.CheckResult{ID: "upload_tool", Status: model.CheckStatusOK}
	if path, err := proc.ResolveTool(tool); err != nil {
		toolResult.Status = model.CheckStatusError
		toolResult.Message = fmt.Sprintf("transfer tool %q not found", tool)
	} else {
		toolResult.Message = fmt.Sprintf("transfer: %s", path)
	}
	results = append(results, toolResult)

	credResult := model.CheckResult{ID: "upload_credentials", Status: model.CheckStatusOK, Message: "not required"}
	if d.config.CredentialService != "" {
		credResult.Message = fmt.Sprintf("%s/%s", d.config.CredentialService, d.config.CredentialAccount)
		if _, err := d.credentials.Secret(d.config.CredentialService, d.config.CredentialAccount); err != nil {
			credResult.Status = model.CheckStatusWarning
			credResult.Message = err.Error()
		}
	}
	results = append(results, credResult)

	return results
}

// Run satisfies the Distro interface. Artifacts are informational here: the
// upload ships whatever the preceding steps placed in the source directory.
func (d *Distro) Run(ctx context.Context, task *progress.Task, artifacts []model.BuildArtifact) error {
	if err := task.Err(); err != nil {
		return err
	}

	secret := ""
	if d.config.CredentialService != "" {
		var err error
		secret, err = d.credentials.Secret(d.config.CredentialService, d.config.CredentialAccount)
		if err != nil {
			return err
		}
	}

	u, err := url.Parse(d.config.Destination)
	if err != nil {
		return fmt.Errorf("destination %q: %w", d.config.Destination, model.ErrNotValid)
	}

	switch u.Scheme {
	case "http", "https":
		return d.uploadHTTP(ctx, task, secret)
	default:
		return d.uploadDir(ctx, task, u, secret)
	}
}

// uploadDir ships the whole source directory in one rsync/scp invocation.
func (d *Distro) uploadDir(ctx context.Context, task *progress.Task, u *url.URL, secret string) error {
	tool, err := d.transferTool()
	if err != nil {
		return err
	}
	toolPath, err := proc.ResolveTool(tool)
	if err != nil {
		return err
	}

	// A trailing slash makes rsync/scp ship the directory contents rather
	// than the directory itself.
	src := strings.TrimSuffix(d.config.SourceDir, "/") + "/"

	var args []string
	var extraEnv map[string]string
	switch tool {
	case "rsync":
		args = []string{"-az", "--progress", src, u.Host + u.Path}
		if secret != "" {
			extraEnv = map[string]string{"RSYNC_PASSWORD": secret}
		}
	case "scp":
		args = []string{"-r", src, u.Host + ":" + u.Path}
	}

	task.Report(0, 1, fmt.Sprintf("Uploading %s to %s", d.config.SourceDir, redact(d.config.Destination)))
	_, err = d.runner.Execute(ctx, proc.Execution{
		Path:     toolPath,
		Args:     args,
		Env:      extraEnv,
		OnOutput: func(line string) { task.Log(line) },
		OnError:  func(line string) { task.Log(line) },
	})
	if err != nil {
		return err
	}

	task.Report(1, 1, "Upload finished")
	d.logger.Infof("Uploaded %s to %s", d.config.SourceDir, redact(d.config.Destination))
	return nil
}

// uploadHTTP PUTs each regular file of the source directory individually,
// curl cannot ship a directory in one request.
func (d *Distro) uploadHTTP(ctx context.Context, task *progress.Task, secret string) error {
	toolPath, err := proc.ResolveTool("curl")
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(d.config.SourceDir)
	if err != nil {
		return fmt.Errorf("could not read source dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("source dir %q has no files to upload: %w", d.config.SourceDir, model.ErrNotValid)
	}

	for i, name := range files {
		if err := task.Err(); err != nil {
			return err
		}

		task.Report(i, len(files), fmt.Sprintf("Uploading %s", name))

		args := []string{"-fsS", "--upload-file", filepath.Join(d.config.SourceDir, name),
			strings.TrimSuffix(d.config.Destination, "/") + "/" + name}
		if secret != "" {
			args = append(args, "-u", d.config.CredentialAccount+":"+secret)
		}

		_, err := d.runner.Execute(ctx, proc.Execution{
			Path:     toolPath,
			Args:     args,
			OnOutput: func(line string) { task.Log(line) },
			OnError:  func(line string) { task.Log(line) },
		})
		if err != nil {
			return fmt.Errorf("uploading %s: %w", name, err)
		}
	}

	task.Report(len(files), len(files), "Upload finished")
	d.logger.Infof("Uploaded %d files to %s", len(files), redact(d.config.Destination))
	return nil
}

// transferTool picks the transfer tool for the destination scheme.
func (d *Distro) transferTool() (string, error) {
	u, err := url.Parse(d.config.Destination)
	if err != nil {
		return "", fmt.Errorf("destination %q: %w", d.config.Destination, model.ErrNotValid)
	}

	switch u.Scheme {
	case "rsync":
		return "rsync", nil
	case "scp", "ssh":
		return "scp", nil
	case "http", "https":
		return "curl", nil
	default:
		return "", fmt.Errorf("unsupported destination scheme %q: %w", u.Scheme, model.ErrNotValid)
	}
}

// redact hides credentials possibly embedded in the destination URL.
func redact(dest string) string {
	u, err := url.Parse(dest)
	if err != nil || u.User == nil {
		return dest
	}
	u.User = url.User(u.User.Username())
	return u.String()
}
