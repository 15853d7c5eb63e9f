package proc

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/shipway/shipway/internal/model"
)

// toolDirs lists candidate tool locations per host platform, consulted before
// falling back to $PATH. A strategy table instead of per-OS conditionals
// scattered through the callers.
var toolDirs = map[string][]string{
	"darwin":  {"/usr/bin", "/usr/local/bin", "/opt/homebrew/bin"},
	"linux":   {"/usr/bin", "/usr/local/bin", "/bin"},
	"windows": {},
}

var (
	toolCacheMu sync.Mutex
	toolCache   = map[string]string{}
)

// ResolveTool finds the absolute path of an external tool following the host
// platform's search sequence. Results are cached for the process lifetime.
func ResolveTool(name string) (string, error) {
	toolCacheMu.Lock()
	defer toolCacheMu.Unlock()

	if path, ok := toolCache[name]; ok {
		return path, nil
	}

	path, err := lookupTool(name)
	if err != nil {
		return "", err
	}

	toolCache[name] = path
	return path, nil
}

func lookupTool(name string) (string, error) {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("tool %q: %w", name, model.ErrNotFound)
		}
		return name, nil
	}

	for _, dir := range toolDirs[runtime.GOOS] {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("tool %q not found on this system: %w", name, model.ErrNotFound)
	}

	return path, nil
}
