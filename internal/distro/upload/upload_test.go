package upload_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipway/shipway/internal/creds"
	"github.com/shipway/shipway/internal/distro/upload"
	"github.com/shipway/shipway/internal/model"
	"github.com/shipway/shipway/internal/proc"
)

func newDistro(t *testing.T, cfg model.UploadDistroConfig, store creds.Store) *upload.Distro {
	t.Helper()
	runner, err := proc.NewRunner(proc.RunnerConfig{})
	require.NoError(t, err)

	d, err := upload.NewDistro(upload.DistroConfig{
		Name:        "cdn",
		Config:      cfg,
		Runner:      runner,
		Credentials: store,
	})
	require.NoError(t, err)
	return d
}

// staticStore returns fixed secrets for tests.
type staticStore map[string]string

func (s staticStore) Secret(service, account string) (string, error) {
	if v, ok := s[service+"/"+account]; ok {
		return v, nil
	}
	return "", model.ErrNotFound
}

func TestUploadValidate(t *testing.T) {
	tests := map[string]struct {
		config   func(t *testing.T) model.UploadDistroConfig
		store    creds.Store
		expErr   bool
		expErrIs error
	}{
		"A missing source dir should not be found.": {
			config: func(t *testing.T) model.UploadDistroConfig {
				return model.UploadDistroConfig{
					Destination: "rsync://cdn.example.com/games",
					SourceDir:   "/does/not/exist",
				}
			},
			expErr:   true,
			expErrIs: model.ErrNotFound,
		},

		"An unsupported destination scheme should not be valid.": {
			config: func(t *testing.T) model.UploadDistroConfig {
				return model.UploadDistroConfig{
					Destination: "ftp://cdn.example.com/games",
					SourceDir:   t.TempDir(),
				}
			},
			expErr:   true,
			expErrIs: model.ErrNotValid,
		},

		"A configured but unresolvable credential should fail fast.": {
			config: func(t *testing.T) model.UploadDistroConfig {
				return model.UploadDistroConfig{
					Destination:       "https://cdn.example.com/games",
					SourceDir:         t.TempDir(),
					CredentialService: "cdn",
					CredentialAccount: "builds",
				}
			},
			store:    staticStore{},
			expErr:   true,
			expErrIs: model.ErrNotFound,
		},

		"A resolvable credential should validate.": {
			config: func(t *testing.T) model.UploadDistroConfig {
				return model.UploadDistroConfig{
					Destination:       "https://cdn.example.com/games",
					SourceDir:         t.TempDir(),
					CredentialService: "cdn",
					CredentialAccount: "builds",
				}
			},
			store: staticStore{"cdn/builds": "s3cret"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			d := newDistro(t, test.config(t), test.store)

			err := d.Validate(context.Background())

			if test.expErr {
				require.Error(t, err)
				if test.expErrIs != nil {
					assert.ErrorIs(t, err, test.expErrIs)
				}
			} else {
				if _, toolErr := proc.ResolveTool("curl"); toolErr != nil {
					t.Skip("curl not available")
				}
				require.NoError(t, err)
			}
		})
	}
}

func TestUploadCheck(t *testing.T) {
	t.Run("Unsupported scheme fails the scheme check.", func(t *testing.T) {
		d := newDistro(t, model.UploadDistroConfig{
			Destination: "ftp://cdn.example.com/games",
			SourceDir:   t.TempDir(),
		}, nil)

		results := d.Check(context.Background())
		require.Len(t, results, 1)
		assert.Equal(t, "upload_scheme", results[0].ID)
		assert.Equal(t, model.CheckStatusError, results[0].Status)
	})

	t.Run("Missing credentials only warn.", func(t *testing.T) {
		d := newDistro(t, model.UploadDistroConfig{
			Destination:       "https://cdn.example.com/games",
			SourceDir:         t.TempDir(),
			CredentialService: "cdn",
			CredentialAccount: "builds",
		}, staticStore{})

		results := d.Check(context.Background())
		require.Len(t, results, 2)
		assert.Equal(t, "upload_credentials", results[1].ID)
		assert.Equal(t, model.CheckStatusWarning, results[1].Status)
	})

	t.Run("Resolvable credentials are ok.", func(t *testing.T) {
		d := newDistro(t, model.UploadDistroConfig{
			Destination:       "https://cdn.example.com/games",
			SourceDir:         t.TempDir(),
			CredentialService: "cdn",
			CredentialAccount: "builds",
		}, staticStore{"cdn/builds": "s3cret"})

		results := d.Check(context.Background())
		require.Len(t, results, 2)
		assert.Equal(t, model.CheckStatusOK, results[1].Status)
	})
}
