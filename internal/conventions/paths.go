package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default shipway data directory name (relative to home).
	DefaultDataDir = ".shipway"
	// DBFile is the run-history database filename inside the data directory.
	DBFile = "shipway.db"
	// ProjectFile is the default project configuration filename.
	ProjectFile = "shipway.yaml"
)

// DBPath returns the run-history database path under the given home directory.
func DBPath(homeDir string) string {
	return filepath.Join(homeDir, DefaultDataDir, DBFile)
}
