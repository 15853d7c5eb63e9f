// Package proc executes external tools for the distribution engine. It
// streams output line-by-line while the process is still running, supports
// cooperative cancellation and classifies exit codes into success, failure
// and cancellation.
package proc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shipway/shipway/internal/log"
	"github.com/shipway/shipway/internal/model"
	"github.com/shipway/shipway/internal/utils/env"
)

// Execution describes one external process invocation.
type Execution struct {
	// Path is the executable, absolute or resolvable on the search path.
	Path string
	// Args are the process arguments. No shell is involved, so no quoting
	// is needed.
	Args []string
	// Dir is an optional working directory.
	Dir string
	// Env are optional environment variable overrides, merged over the
	// current process environment.
	Env map[string]string
	// Input, when non-empty, is written to the process stdin, which is then
	// closed.
	Input string
	// OnOutput is called for every completed stdout line, before the
	// process exits.
	OnOutput func(line string)
	// OnError is called for every completed stderr line.
	OnError func(line string)
	// SilentError suppresses the error log on non-zero exits. Used when a
	// failure is expected, e.g. probing whether a file is already
	// processed.
	SilentError bool
}

// RunnerConfig is the configuration for a Runner.
type RunnerConfig struct {
	Logger log.Logger
	// CancelExitCodes are exit codes treated as cancellation instead of
	// failure. Defaults to the forced-termination codes of the host
	// platform (137/143 on POSIX, none on Windows).
	CancelExitCodes []int
	// KillGracePeriod is how long a terminated process gets between the
	// cooperative termination signal and the forced kill.
	KillGracePeriod time.Duration
}

func (c *RunnerConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "proc.Runner"})
	if c.CancelExitCodes == nil {
		c.CancelExitCodes = defaultCancelExitCodes
	}
	if c.KillGracePeriod == 0 {
		c.KillGracePeriod = 5 * time.Second
	}
	return nil
}

// Runner executes external processes.
type Runner struct {
	logger      log.Logger
	cancelCodes []int
	killGrace   time.Duration
}

// NewRunner creates a new process runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Runner{
		logger:      cfg.Logger,
		cancelCodes: cfg.CancelExitCodes,
		killGrace:   cfg.KillGracePeriod,
	}, nil
}

type outLine struct {
	stderr bool
	text   string
}

// Execute runs the process to completion and returns its exit code.
//
// Output callbacks are dispatched from the calling goroutine, in the order
// lines are received, while the process is still running. On cancellation the
// process group is terminated (termination signal first, kill after the grace
// period) and model.ErrCanceled is returned without logging an error.
func (r *Runner) Execute(ctx context.Context, e Execution) (int, error) {
	if e.Path == "" {
		return -1, fmt.Errorf("executable path is required: %w", model.ErrNotValid)
	}
	if err := ctx.Err(); err != nil {
		return -1, fmt.Errorf("%s not started: %w", e.Path, model.ErrCanceled)
	}

	tool := filepath.Base(e.Path)

	cmd := exec.Command(e.Path, e.Args...)
	cmd.Dir = e.Dir
	if len(e.Env) > 0 {
		cmd.Env = envSlice(env.MergeMaps(environMap(), e.Env))
	}
	setProcessGroup(cmd)

	if e.Input != "" {
		cmd.Stdin = strings.NewReader(e.Input)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("could not create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, fmt.Errorf("could not create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("could not start %s: %w", tool, err)
	}

	// Readers run concurrently but every line is funneled back and
	// dispatched from this goroutine, so callbacks never interleave.
	lines := make(chan outLine, 64)
	var readers errgroup.Group
	readers.Go(func() error { return readLines(stdout, false, lines) })
	readers.Go(func() error { return readLines(stderr, true, lines) })
	go func() {
		_ = readers.Wait()
		close(lines)
	}()

	var stdoutBuf, stderrBuf strings.Builder
	terminated := false
	done := ctx.Done()

loop:
	for {
		select {
		case l, ok := <-lines:
			if !ok {
				break loop
			}
			if l.stderr {
				stderrBuf.WriteString(l.text)
				stderrBuf.WriteByte('\n')
				if e.OnError != nil {
					e.OnError(l.text)
				}
			} else {
				stdoutBuf.WriteString(l.text)
				stdoutBuf.WriteByte('\n')
				if e.OnOutput != nil {
					e.OnOutput(l.text)
				}
			}
		case <-done:
			if !terminated {
				r.logger.Debugf("Cancellation requested, terminating %s", tool)
				r.terminate(cmd)
				terminated = true
			}
			// Keep draining lines until the pipes close.
			done = nil
		}
	}

	waitErr := cmd.Wait()
	exitCode := exitCodeFromWait(waitErr)

	switch {
	case ctx.Err() != nil:
		return exitCode, fmt.Errorf("%s: %w", tool, model.ErrCanceled)

	case exitCode == 0:
		if waitErr != nil {
			return exitCode, fmt.Errorf("waiting for %s: %w", tool, waitErr)
		}
		return 0, nil

	case slices.Contains(r.cancelCodes, exitCode):
		// Forced-termination exit codes mean the tool was cancelled from
		// the outside. Not a failure, never logged.
		return exitCode, fmt.Errorf("%s: %w", tool, model.ErrCanceled)

	default:
		perr := &model.ProcessError{
			Tool:     tool,
			ExitCode: exitCode,
			Output:   combinedOutput(stdoutBuf.String(), stderrBuf.String()),
		}
		if !e.SilentError {
			r.logger.Errorf("%s failed with exit code %d:\n%s", tool, exitCode, perr.Output)
		}
		return exitCode, perr
	}
}

// terminate stops the process cooperatively first and forcibly after the
// grace period.
func (r *Runner) terminate(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	signalTerm(cmd)
	time.AfterFunc(r.killGrace, func() { signalKill(cmd) })
}

func readLines(rd io.Reader, stderr bool, out chan<- outLine) error {
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		out <- outLine{stderr: stderr, text: scanner.Text()}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}

func combinedOutput(stdout, stderr string) string {
	stdout = strings.TrimSpace(stdout)
	stderr = strings.TrimSpace(stderr)
	switch {
	case stderr == "":
		return stdout
	case stdout == "":
		return stderr
	default:
		return stdout + "\n" + stderr
	}
}

func environMap() map[string]string {
	environ := os.Environ()
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return m
}

func envSlice(m map[string]string) []string {
	s := make([]string, 0, len(m))
	for k, v := range m {
		s = append(s, k+"="+v)
	}
	return s
}
