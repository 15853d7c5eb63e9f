package model

import (
	"fmt"
	"os"
)

// Platform identifies the target platform of a build artifact.
type Platform string

const (
	PlatformWindows Platform = "windows"
	PlatformMacOS   Platform = "macos"
	PlatformLinux   Platform = "linux"
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

// BuildArtifact is one finished build, the unit of work that flows through
// every distribution step.
type BuildArtifact struct {
	Platform Platform
	Path     string
	Profile  string
}

// Validate checks the artifact points to something that exists on disk.
func (a BuildArtifact) Validate() error {
	if a.Platform == "" {
		return fmt.Errorf("artifact platform is required: %w", ErrNotValid)
	}
	if a.Path == "" {
		return fmt.Errorf("artifact path is required: %w", ErrNotValid)
	}
	if _, err := os.Stat(a.Path); err != nil {
		return fmt.Errorf("artifact path %q: %w", a.Path, ErrNotFound)
	}
	return nil
}

// String returns a short human identifier for log lines.
func (a BuildArtifact) String() string {
	if a.Profile != "" {
		return fmt.Sprintf("%s/%s", a.Profile, a.Platform)
	}
	return string(a.Platform)
}
