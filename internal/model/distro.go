package model

import (
	"fmt"
)

// DistroConfig describes one configured distribution destination. Exactly one
// of the engine-specific sections must be set.
type DistroConfig struct {
	Name string

	// ContinueOnError makes a batch keep shipping the remaining artifacts
	// after one of them fails. The default is to fail fast.
	ContinueOnError bool

	Zip    *ZipDistroConfig
	Script *ScriptDistroConfig
	Upload *UploadDistroConfig
}

// ZipDistroConfig configures the archive distribution.
type ZipDistroConfig struct {
	// OutputDir is where finished archives are placed.
	OutputDir string
	// NameTemplate names each archive, with {platform} and {profile}
	// placeholders. Defaults to "{profile}-{platform}.zip".
	NameTemplate string
}

// ScriptDistroConfig configures the user-script distribution.
type ScriptDistroConfig struct {
	// Path is the script executed for each artifact. The artifact's
	// platform, path and profile are passed through the environment.
	Path string
	// Args are extra arguments appended to every invocation.
	Args []string
	// OncePerRun runs the script a single time for the whole batch instead
	// of once per artifact.
	OncePerRun bool
	// Env are additional environment variable overrides.
	Env map[string]string
	// ProbeArgs, when set, are used for a preliminary invocation whose
	// failure is expected and silent: a non-zero exit means the artifact
	// still needs processing, zero means it can be skipped.
	ProbeArgs []string
}

// UploadDistroConfig configures the generic upload distribution.
type UploadDistroConfig struct {
	// Destination is where archives are shipped, e.g. "rsync://host/path",
	// "scp://host/path" or "https://host/endpoint".
	Destination string
	// SourceDir is the local directory whose contents are uploaded.
	SourceDir string
	// CredentialService and CredentialAccount key the secret lookup in the
	// credential store. Empty means unauthenticated.
	CredentialService string
	CredentialAccount string
}

// Validate checks the distro configuration without touching any external
// resource.
func (c DistroConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("distro name is required: %w", ErrNotValid)
	}

	// Ensure exactly one engine section is specified.
	engines := 0
	if c.Zip != nil {
		engines++
	}
	if c.Script != nil {
		engines++
	}
	if c.Upload != nil {
		engines++
	}
	if engines == 0 {
		return fmt.Errorf("distro %q: exactly one of zip, script or upload must be specified: %w", c.Name, ErrNotValid)
	}
	if engines > 1 {
		return fmt.Errorf("distro %q: only one engine section can be specified at a time: %w", c.Name, ErrNotValid)
	}

	switch {
	case c.Zip != nil:
		if c.Zip.OutputDir == "" {
			return fmt.Errorf("distro %q: zip output dir is required: %w", c.Name, ErrNotValid)
		}
	case c.Script != nil:
		if c.Script.Path == "" {
			return fmt.Errorf("distro %q: script path is required: %w", c.Name, ErrNotValid)
		}
	case c.Upload != nil:
		if c.Upload.Destination == "" {
			return fmt.Errorf("distro %q: upload destination is required: %w", c.Name, ErrNotValid)
		}
		if c.Upload.SourceDir == "" {
			return fmt.Errorf("distro %q: upload source dir is required: %w", c.Name, ErrNotValid)
		}
	}

	return nil
}

// Project is the full shipway configuration: the artifacts to ship and the
// distros to ship them through.
type Project struct {
	Artifacts []BuildArtifact
	Distros   []DistroConfig
}

// DistroByName returns the named distro config.
func (p Project) DistroByName(name string) (*DistroConfig, error) {
	for i := range p.Distros {
		if p.Distros[i].Name == name {
			return &p.Distros[i], nil
		}
	}
	return nil, fmt.Errorf("distro %q: %w", name, ErrNotFound)
}
