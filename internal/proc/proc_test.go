//go:build unix

package proc_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shipway/shipway/internal/log"
	"github.com/shipway/shipway/internal/model"
	"github.com/shipway/shipway/internal/proc"
)

// recordLogger captures error log lines for assertions.
type recordLogger struct {
	log.Logger

	mu     sync.Mutex
	errors []string
}

func newRecordLogger() *recordLogger {
	return &recordLogger{Logger: log.Noop}
}

func (l *recordLogger) Errorf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

func (l *recordLogger) WithValues(map[string]any) log.Logger { return l }

func newRunner(t *testing.T) *proc.Runner {
	t.Helper()
	r, err := proc.NewRunner(proc.RunnerConfig{KillGracePeriod: time.Second})
	require.NoError(t, err)
	return r
}

func TestRunnerExecute(t *testing.T) {
	tests := map[string]struct {
		execution func() (proc.Execution, *[]string)
		expCode   int
		expErr    bool
		expErrIs  error
		expLines  []string
	}{
		"A successful process should stream its stdout lines in order.": {
			execution: func() (proc.Execution, *[]string) {
				var lines []string
				return proc.Execution{
					Path:     "sh",
					Args:     []string{"-c", "echo one; echo two"},
					OnOutput: func(l string) { lines = append(lines, l) },
				}, &lines
			},
			expCode:  0,
			expLines: []string{"one", "two"},
		},

		"Stderr lines should go to the error callback.": {
			execution: func() (proc.Execution, *[]string) {
				var lines []string
				return proc.Execution{
					Path:    "sh",
					Args:    []string{"-c", "echo warn >&2"},
					OnError: func(l string) { lines = append(lines, l) },
				}, &lines
			},
			expCode:  0,
			expLines: []string{"warn"},
		},

		"Environment overrides should reach the process.": {
			execution: func() (proc.Execution, *[]string) {
				var lines []string
				return proc.Execution{
					Path:     "sh",
					Args:     []string{"-c", "echo $SHIPWAY_TEST_VALUE"},
					Env:      map[string]string{"SHIPWAY_TEST_VALUE": "v1"},
					OnOutput: func(l string) { lines = append(lines, l) },
				}, &lines
			},
			expCode:  0,
			expLines: []string{"v1"},
		},

		"Input should be written to the process stdin.": {
			execution: func() (proc.Execution, *[]string) {
				var lines []string
				return proc.Execution{
					Path:     "sh",
					Args:     []string{"-c", "cat"},
					Input:    "ping\n",
					OnOutput: func(l string) { lines = append(lines, l) },
				}, &lines
			},
			expCode:  0,
			expLines: []string{"ping"},
		},

		"A failing process should return a process error with its output.": {
			execution: func() (proc.Execution, *[]string) {
				return proc.Execution{
					Path: "sh",
					Args: []string{"-c", "echo boom >&2; exit 3"},
				}, nil
			},
			expCode: 3,
			expErr:  true,
		},

		"Forced-termination exit codes should classify as cancellation.": {
			execution: func() (proc.Execution, *[]string) {
				return proc.Execution{
					Path: "sh",
					Args: []string{"-c", "exit 143"},
				}, nil
			},
			expCode:  143,
			expErr:   true,
			expErrIs: model.ErrCanceled,
		},

		"A missing executable path should not be valid.": {
			execution: func() (proc.Execution, *[]string) {
				return proc.Execution{}, nil
			},
			expCode:  -1,
			expErr:   true,
			expErrIs: model.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			r := newRunner(t)
			execution, lines := test.execution()

			code, err := r.Execute(context.Background(), execution)

			assert.Equal(t, test.expCode, code)
			if test.expErr {
				require.Error(t, err)
				if test.expErrIs != nil {
					assert.ErrorIs(t, err, test.expErrIs)
				}
			} else {
				require.NoError(t, err)
			}
			if lines != nil {
				assert.Equal(t, test.expLines, *lines)
			}
		})
	}
}

func TestRunnerExecuteFailureLogging(t *testing.T) {
	tests := map[string]struct {
		execution proc.Execution
		expLogs   int
	}{
		"A regular failure should log the error exactly once, naming the tool.": {
			execution: proc.Execution{
				Path: "sh",
				Args: []string{"-c", "echo boom >&2; exit 3"},
			},
			expLogs: 1,
		},

		"A silenced failure should not log at all.": {
			execution: proc.Execution{
				Path:        "sh",
				Args:        []string{"-c", "exit 3"},
				SilentError: true,
			},
			expLogs: 0,
		},

		"A forced-termination exit should never log.": {
			execution: proc.Execution{
				Path: "sh",
				Args: []string{"-c", "exit 137"},
			},
			expLogs: 0,
		},

		"A silenced forced-termination exit should never log either.": {
			execution: proc.Execution{
				Path:        "sh",
				Args:        []string{"-c", "exit 137"},
				SilentError: true,
			},
			expLogs: 0,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			logger := newRecordLogger()
			r, err := proc.NewRunner(proc.RunnerConfig{Logger: logger, KillGracePeriod: time.Second})
			require.NoError(t, err)

			_, err = r.Execute(context.Background(), test.execution)
			require.Error(t, err)

			require.Len(t, logger.errors, test.expLogs)
			if test.expLogs > 0 {
				assert.Contains(t, logger.errors[0], "sh")
			}
		})
	}
}

func TestRunnerExecuteProcessError(t *testing.T) {
	r := newRunner(t)

	_, err := r.Execute(context.Background(), proc.Execution{
		Path:        "sh",
		Args:        []string{"-c", "echo out; echo err >&2; exit 12"},
		SilentError: true,
	})

	var perr *model.ProcessError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "sh", perr.Tool)
	assert.Equal(t, 12, perr.ExitCode)
	assert.Contains(t, perr.Output, "out")
	assert.Contains(t, perr.Output, "err")
}

func TestRunnerExecuteCanceledBeforeStart(t *testing.T) {
	r := newRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code, err := r.Execute(ctx, proc.Execution{Path: "sh", Args: []string{"-c", "true"}})
	assert.Equal(t, -1, code)
	assert.ErrorIs(t, err, model.ErrCanceled)
}

func TestRunnerExecuteTerminatesOnCancellation(t *testing.T) {
	r := newRunner(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := r.Execute(ctx, proc.Execution{
		Path: "sh",
		Args: []string{"-c", "sleep 30"},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrCanceled)
	assert.Less(t, time.Since(start), 10*time.Second, "cancellation must terminate the process instead of waiting it out")
}

func TestResolveTool(t *testing.T) {
	path, err := proc.ResolveTool("sh")
	require.NoError(t, err)
	assert.NotEmpty(t, path)

	// Cached second lookup.
	path2, err := proc.ResolveTool("sh")
	require.NoError(t, err)
	assert.Equal(t, path, path2)

	_, err = proc.ResolveTool("shipway-no-such-tool")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestPoll(t *testing.T) {
	t.Run("Finishes once the condition reports done.", func(t *testing.T) {
		calls := 0
		err := proc.Poll(context.Background(), time.Millisecond, 0, func(context.Context) (bool, error) {
			calls++
			return calls >= 3, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("Fails with timeout when the condition never holds.", func(t *testing.T) {
		err := proc.Poll(context.Background(), time.Millisecond, 20*time.Millisecond, func(context.Context) (bool, error) {
			return false, nil
		})
		assert.ErrorIs(t, err, model.ErrTimeout)
	})

	t.Run("Fails with cancellation when the context ends.", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := proc.Poll(ctx, time.Millisecond, 0, func(context.Context) (bool, error) {
			return false, nil
		})
		assert.ErrorIs(t, err, model.ErrCanceled)
	})

	t.Run("Does not probe at all when the context is already canceled.", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		err := proc.Poll(ctx, time.Millisecond, 0, func(context.Context) (bool, error) {
			calls++
			return false, nil
		})
		assert.ErrorIs(t, err, model.ErrCanceled)
		assert.Equal(t, 0, calls)
	})

	t.Run("Surfaces the condition's own error.", func(t *testing.T) {
		expErr := errors.New("probe failed")
		err := proc.Poll(context.Background(), time.Millisecond, 0, func(context.Context) (bool, error) {
			return false, expErr
		})
		assert.ErrorIs(t, err, expErr)
	})
}
