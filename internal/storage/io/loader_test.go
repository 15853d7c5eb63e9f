package io

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipway/shipway/internal/model"
)

func TestProjectYAMLRepository_GetProject(t *testing.T) {
	tests := map[string]struct {
		fs         fstest.MapFS
		path       string
		expProject model.Project
		expErr     bool
		errMsg     string
	}{
		"Valid project with zip distro should load successfully": {
			fs: fstest.MapFS{
				"shipway.yaml": &fstest.MapFile{
					Data: []byte(`artifacts:
  - platform: linux
    path: builds/linux
    profile: default
distros:
  - name: archives
    zip:
      output_dir: dist
      name_template: "{profile}-{platform}.zip"
`),
				},
			},
			path: "shipway.yaml",
			expProject: model.Project{
				Artifacts: []model.BuildArtifact{
					{Platform: model.PlatformLinux, Path: "builds/linux", Profile: "default"},
				},
				Distros: []model.DistroConfig{
					{
						Name: "archives",
						Zip: &model.ZipDistroConfig{
							OutputDir:    "dist",
							NameTemplate: "{profile}-{platform}.zip",
						},
					},
				},
			},
		},
		"Valid project with script and upload distros should load successfully": {
			fs: fstest.MapFS{
				"shipway.yaml": &fstest.MapFile{
					Data: []byte(`artifacts:
  - platform: macos
    path: builds/macos
distros:
  - name: itch
    continue_on_error: true
    script:
      path: scripts/push.sh
      args: ["--channel", "beta"]
      env:
        BUTLER_API_KEY_REF: itch
  - name: cdn
    upload:
      destination: rsync://builds@cdn.example.com/games
      source_dir: dist
      credential_service: cdn
      credential_account: builds
`),
				},
			},
			path: "shipway.yaml",
			expProject: model.Project{
				Artifacts: []model.BuildArtifact{
					{Platform: model.PlatformMacOS, Path: "builds/macos"},
				},
				Distros: []model.DistroConfig{
					{
						Name:            "itch",
						ContinueOnError: true,
						Script: &model.ScriptDistroConfig{
							Path: "scripts/push.sh",
							Args: []string{"--channel", "beta"},
							Env:  map[string]string{"BUTLER_API_KEY_REF": "itch"},
						},
					},
					{
						Name: "cdn",
						Upload: &model.UploadDistroConfig{
							Destination:       "rsync://builds@cdn.example.com/games",
							SourceDir:         "dist",
							CredentialService: "cdn",
							CredentialAccount: "builds",
						},
					},
				},
			},
		},
		"Missing file should return error": {
			fs:     fstest.MapFS{},
			path:   "nonexistent.yaml",
			expErr: true,
			errMsg: "reading project file",
		},
		"Invalid YAML should return error": {
			fs: fstest.MapFS{
				"invalid.yaml": &fstest.MapFile{
					Data: []byte(`distros: [}`),
				},
			},
			path:   "invalid.yaml",
			expErr: true,
			errMsg: "parsing YAML",
		},
		"Project without distros should return error": {
			fs: fstest.MapFS{
				"shipway.yaml": &fstest.MapFile{
					Data: []byte(`artifacts:
  - platform: linux
    path: builds/linux
`),
				},
			},
			path:   "shipway.yaml",
			expErr: true,
			errMsg: "at least one distro",
		},
		"Distro with two engines should return error": {
			fs: fstest.MapFS{
				"shipway.yaml": &fstest.MapFile{
					Data: []byte(`distros:
  - name: broken
    zip:
      output_dir: dist
    script:
      path: push.sh
`),
				},
			},
			path:   "shipway.yaml",
			expErr: true,
		},
		"Duplicated distro names should return error": {
			fs: fstest.MapFS{
				"shipway.yaml": &fstest.MapFile{
					Data: []byte(`distros:
  - name: archives
    zip:
      output_dir: dist
  - name: archives
    zip:
      output_dir: other
`),
				},
			},
			path:   "shipway.yaml",
			expErr: true,
			errMsg: "duplicated distro name",
		},
		"Artifact without path should return error": {
			fs: fstest.MapFS{
				"shipway.yaml": &fstest.MapFile{
					Data: []byte(`artifacts:
  - platform: linux
distros:
  - name: archives
    zip:
      output_dir: dist
`),
				},
			},
			path:   "shipway.yaml",
			expErr: true,
			errMsg: "artifacts need platform and path",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			repo := NewProjectYAMLRepository(test.fs)
			project, err := repo.GetProject(context.Background(), test.path)

			if test.expErr {
				require.Error(t, err)
				if test.errMsg != "" {
					assert.Contains(t, err.Error(), test.errMsg)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expProject, project)
		})
	}
}
