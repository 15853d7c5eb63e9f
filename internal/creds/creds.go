// Package creds defines the credential store contract used by distros that
// authenticate against remote destinations.
package creds

import (
	"fmt"
	"os"
	"strings"

	"github.com/shipway/shipway/internal/model"
)

// Store returns a secret string by (service, account) key.
type Store interface {
	Secret(service, account string) (string, error)
}

// EnvStore resolves secrets from environment variables named
// SHIPWAY_<SERVICE>_<ACCOUNT>, uppercased with non-alphanumerics mapped to
// underscores.
type EnvStore struct {
	// Prefix overrides the default "SHIPWAY" variable prefix.
	Prefix string
}

// Secret satisfies the Store interface.
func (s EnvStore) Secret(service, account string) (string, error) {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "SHIPWAY"
	}

	key := fmt.Sprintf("%s_%s_%s", prefix, envSegment(service), envSegment(account))
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", fmt.Errorf("credential for %s/%s (env %s): %w", service, account, key, model.ErrNotFound)
	}

	return value, nil
}

func envSegment(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - ('a' - 'A')
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, s)
	return mapped
}
