package io

import (
	"context"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/shipway/shipway/internal/model"
)

// ProjectYAMLRepository loads shipway project configuration from YAML files.
type ProjectYAMLRepository struct {
	fs fs.FS
}

// NewProjectYAMLRepository creates a new YAML project repository.
func NewProjectYAMLRepository(filesystem fs.FS) *ProjectYAMLRepository {
	return &ProjectYAMLRepository{fs: filesystem}
}

// GetProject loads a project from a YAML file and returns a validated domain
// model.
func (r *ProjectYAMLRepository) GetProject(ctx context.Context, path string) (model.Project, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.Project{}, fmt.Errorf("reading project file: %w", err)
	}

	if ctx.Err() != nil {
		return model.Project{}, ctx.Err()
	}

	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return model.Project{}, fmt.Errorf("parsing YAML: %w", err)
	}

	mp := p.toModel()
	if err := validateProject(mp); err != nil {
		return model.Project{}, fmt.Errorf("invalid project: %w", err)
	}

	return mp, nil
}

// Project represents the YAML structure of a shipway project file.
type Project struct {
	Artifacts []Artifact `yaml:"artifacts"`
	Distros   []Distro   `yaml:"distros"`
}

// Artifact represents the YAML structure of one build artifact.
type Artifact struct {
	Platform string `yaml:"platform"`
	Path     string `yaml:"path"`
	Profile  string `yaml:"profile"`
}

// Distro represents the YAML structure of one distro definition.
type Distro struct {
	Name            string        `yaml:"name"`
	ContinueOnError bool          `yaml:"continue_on_error"`
	Zip             *ZipDistro    `yaml:"zip,omitempty"`
	Script          *ScriptDistro `yaml:"script,omitempty"`
	Upload          *UploadDistro `yaml:"upload,omitempty"`
}

// ZipDistro represents the YAML structure of the zip distro configuration.
type ZipDistro struct {
	OutputDir    string `yaml:"output_dir"`
	NameTemplate string `yaml:"name_template"`
}

// ScriptDistro represents the YAML structure of the script distro
// configuration.
type ScriptDistro struct {
	Path       string            `yaml:"path"`
	Args       []string          `yaml:"args"`
	OncePerRun bool              `yaml:"once_per_run"`
	Env        map[string]string `yaml:"env"`
	ProbeArgs  []string          `yaml:"probe_args"`
}

// UploadDistro represents the YAML structure of the upload distro
// configuration.
type UploadDistro struct {
	Destination       string `yaml:"destination"`
	SourceDir         string `yaml:"source_dir"`
	CredentialService string `yaml:"credential_service"`
	CredentialAccount string `yaml:"credential_account"`
}

func (p Project) toModel() model.Project {
	mp := model.Project{}

	for _, a := range p.Artifacts {
		mp.Artifacts = append(mp.Artifacts, model.BuildArtifact{
			Platform: model.Platform(a.Platform),
			Path:     a.Path,
			Profile:  a.Profile,
		})
	}

	for _, d := range p.Distros {
		md := model.DistroConfig{
			Name:            d.Name,
			ContinueOnError: d.ContinueOnError,
		}
		if d.Zip != nil {
			md.Zip = &model.ZipDistroConfig{
				OutputDir:    d.Zip.OutputDir,
				NameTemplate: d.Zip.NameTemplate,
			}
		}
		if d.Script != nil {
			md.Script = &model.ScriptDistroConfig{
				Path:       d.Script.Path,
				Args:       d.Script.Args,
				OncePerRun: d.Script.OncePerRun,
				Env:        d.Script.Env,
				ProbeArgs:  d.Script.ProbeArgs,
			}
		}
		if d.Upload != nil {
			md.Upload = &model.UploadDistroConfig{
				Destination:       d.Upload.Destination,
				SourceDir:         d.Upload.SourceDir,
				CredentialService: d.Upload.CredentialService,
				CredentialAccount: d.Upload.CredentialAccount,
			}
		}
		mp.Distros = append(mp.Distros, md)
	}

	return mp
}

func validateProject(p model.Project) error {
	if len(p.Distros) == 0 {
		return fmt.Errorf("at least one distro is required: %w", model.ErrNotValid)
	}

	seen := map[string]bool{}
	for _, d := range p.Distros {
		if err := d.Validate(); err != nil {
			return err
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicated distro name %q: %w", d.Name, model.ErrNotValid)
		}
		seen[d.Name] = true
	}

	for _, a := range p.Artifacts {
		if a.Platform == "" || a.Path == "" {
			return fmt.Errorf("artifacts need platform and path: %w", model.ErrNotValid)
		}
	}

	return nil
}
