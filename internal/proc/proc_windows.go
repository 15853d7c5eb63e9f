//go:build windows

package proc

import (
	"errors"
	"os/exec"
)

// Windows has no SIGKILL/SIGTERM-style exit codes, cancellation is only
// recognized through an explicit request.
var defaultCancelExitCodes = []int{}

func setProcessGroup(cmd *exec.Cmd) {}

func signalTerm(cmd *exec.Cmd) {
	// No cooperative termination signal on Windows, go straight to kill.
	signalKill(cmd)
}

func signalKill(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}

func exitCodeFromWait(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}

	return -1
}
