//go:build unix

package proc

import (
	"errors"
	"os/exec"
	"syscall"
)

// defaultCancelExitCodes are the POSIX forced-termination codes: 128+9
// (SIGKILL) and 128+15 (SIGTERM).
var defaultCancelExitCodes = []int{137, 143}

// setProcessGroup puts the child in its own process group so termination
// signals reach the whole tree.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func signalTerm(cmd *exec.Cmd) { signalGroup(cmd, syscall.SIGTERM) }
func signalKill(cmd *exec.Cmd) { signalGroup(cmd, syscall.SIGKILL) }

func signalGroup(cmd *exec.Cmd, sig syscall.Signal) {
	if cmd.Process == nil {
		return
	}
	if pgid, err := syscall.Getpgid(cmd.Process.Pid); err == nil {
		_ = syscall.Kill(-pgid, sig)
		return
	}
	_ = cmd.Process.Signal(sig)
}

// exitCodeFromWait extracts the exit code from a Wait error. Signal exits map
// to 128+signal so a SIGKILLed tool reports 137, matching the cancellation
// code set.
func exitCodeFromWait(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				return 128 + int(status.Signal())
			}
			return status.ExitStatus()
		}
		return exitErr.ExitCode()
	}

	return -1
}
