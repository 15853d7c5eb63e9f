// Package progress implements hierarchical progress and cancellation tokens
// for distribution runs. Every orchestration step receives a Task and uses it
// to report machine-readable step counts, emit human-readable log lines and
// check for cooperative cancellation.
package progress

import (
	"context"
	"fmt"
	"sync"

	"github.com/shipway/shipway/internal/log"
	"github.com/shipway/shipway/internal/model"
)

// Update is one machine-readable progress report.
type Update struct {
	TaskID      int
	ParentID    int // 0 when the task is a root.
	Name        string
	Step        int // Effective step, base offset already applied.
	Total       int // 0 when unknown.
	Description string
}

// Reporter consumes progress events. Implemented by whatever UI surface hosts
// the run (table output, logs, a progress bar).
type Reporter interface {
	Update(u Update)
	Log(taskName, line string)
}

// NoopReporter discards all progress events.
var NoopReporter Reporter = noopReporter(0)

type noopReporter int

func (noopReporter) Update(Update)      {}
func (noopReporter) Log(string, string) {}

// TrackerConfig is the configuration for a Tracker.
type TrackerConfig struct {
	Reporter Reporter
	Logger   log.Logger
}

func (c *TrackerConfig) defaults() error {
	if c.Reporter == nil {
		c.Reporter = NoopReporter
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "progress.Tracker"})
	return nil
}

// Tracker issues progress tasks. Each Tracker owns its id space, there is no
// process-wide shared state.
type Tracker struct {
	mu       sync.Mutex
	nextID   int
	reporter Reporter
	logger   log.Logger
}

// NewTracker creates a new progress tracker.
func NewTracker(cfg TrackerConfig) (*Tracker, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Tracker{
		reporter: cfg.Reporter,
		logger:   cfg.Logger,
	}, nil
}

// Start begins tracking a new root task.
func (t *Tracker) Start(ctx context.Context, name string) *Task {
	return t.newTask(ctx, name, 0, 0)
}

func (t *Tracker) newTask(ctx context.Context, name string, parentID, baseStep int) *Task {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.mu.Unlock()

	taskCtx, cancel := context.WithCancel(ctx)
	return &Task{
		tracker:  t,
		id:       id,
		parentID: parentID,
		baseStep: baseStep,
		name:     name,
		ctx:      taskCtx,
		cancel:   cancel,
	}
}

// Task identifies one unit of progress. Tasks form a hierarchy but the
// presentation is flattened at two levels: children of children are
// re-parented onto the root task.
type Task struct {
	tracker  *Tracker
	id       int
	parentID int
	baseStep int
	name     string

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	lastStep int
	removed  bool
}

// ID returns the task id.
func (t *Task) ID() int { return t.id }

// Name returns the task display name.
func (t *Task) Name() string { return t.name }

// StartChild begins a child task. The child reports its own local step count
// starting at zero; its base step offsets those onto the parent's numbering so
// the outward display shows a continuously increasing overall step count.
func (t *Task) StartChild(name string) *Task {
	// Nesting depth is capped at two levels in the presentation: a child of
	// a child hangs off the same root as its parent.
	parentID := t.id
	if t.parentID != 0 {
		parentID = t.parentID
	}

	t.mu.Lock()
	base := t.baseStep + t.lastStep
	t.mu.Unlock()

	return t.tracker.newTask(t.ctx, name, parentID, base)
}

// Report updates the numeric progress. A non-empty description also emits a
// human-readable log line prefixed with the task's display name.
func (t *Task) Report(step, total int, description string) {
	t.mu.Lock()
	if step > t.lastStep {
		t.lastStep = step
	}
	removed := t.removed
	t.mu.Unlock()
	if removed {
		return
	}

	u := Update{
		TaskID:      t.id,
		ParentID:    t.parentID,
		Name:        t.name,
		Step:        t.baseStep + step,
		Description: description,
	}
	// An unknown total stays unknown, the base offset only applies to
	// known ones.
	if total > 0 {
		u.Total = t.baseStep + total
	}
	t.tracker.reporter.Update(u)

	if description != "" {
		t.tracker.reporter.Log(t.name, description)
		t.tracker.logger.Debugf("%s: %s", t.name, description)
	}
}

// Log emits a free-text log line without touching the numeric progress.
func (t *Task) Log(line string) {
	t.tracker.reporter.Log(t.name, line)
}

// Remove ends the task. Further reports are dropped and the task context is
// released, so to a still-running child or process the removal is
// indistinguishable from cancellation. Callers remove a task only after its
// work has finished.
func (t *Task) Remove() {
	t.mu.Lock()
	t.removed = true
	t.mu.Unlock()
	t.cancel()
}

// Cancel requests cooperative cancellation of the task and all its children.
func (t *Task) Cancel() {
	t.cancel()
}

// Err returns model.ErrCanceled once cancellation has been requested either
// on this task, one of its ancestors or the surrounding context. Operations
// check it at safe points: between steps and around process spawns.
func (t *Task) Err() error {
	select {
	case <-t.ctx.Done():
		return fmt.Errorf("task %q: %w", t.name, model.ErrCanceled)
	default:
		return nil
	}
}

// Context returns a context that is canceled together with the task. It is
// what gets handed to external process executions so that cancellation
// terminates them.
func (t *Task) Context() context.Context {
	return t.ctx
}
